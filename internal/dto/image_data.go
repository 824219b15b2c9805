// ImagesData is a paginated response payload for the saved images list.
package dto

type ImagesData struct {
	Images      []ImageInfo `json:"images"`
	SavedDir    string      `json:"savedDir"`
	Size        int64       `json:"size"`
	Length      int         `json:"length"`
	TotalPages  int         `json:"totalPages"`
	CurrentPage int         `json:"currentPage"`
	Limit       int         `json:"pageSize"`
	Objects     []string    `json:"objects"` // every object name in the index
}
