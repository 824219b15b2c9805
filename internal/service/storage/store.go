package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/jarupong555/Detec-V1.0/internal/logger"
)

// TimestampLayout is the timestamp embedded in saved file names.
const TimestampLayout = "20060102_15-04-05.000"

const unknownFolder = "unknown"

var invalidChars = strings.NewReplacer(
	"<", "-", ">", "-", ":", "-", `"`, "-", "/", "-", `\`, "-", "|", "-", "?", "-", "*", "-",
)

// Sanitize makes name safe as a single path element. Blank names become "unknown".
func Sanitize(name string) string {
	name = strings.TrimSpace(invalidChars.Replace(name))
	if name == "" || name == "." || name == ".." {
		return unknownFolder
	}
	return name
}

// StoreOptions configure retention.
type StoreOptions struct {
	Root              string
	MaxSaved          int            // global default per folder
	MaxSavedPerFolder int            // overrides MaxSaved when positive
	FolderLimits      map[string]int // per-folder overrides, keyed by sanitized folder name
	Location          *time.Location // zone of the timestamp in file names
}

// SavedFile describes a file written by Save.
type SavedFile struct {
	Folder    string
	Filename  string
	Path      string
	Size      int64
	Timestamp time.Time
	Evicted   []string // paths removed by retention after this save
}

// Store writes detection images into one folder per location and keeps each
// folder under its retention limit.
type Store struct {
	opts   StoreOptions
	logger *logger.Logger
	now    func() time.Time

	locksMu sync.Mutex
	locks   map[string]*sync.Mutex

	clearMu sync.RWMutex // held shared by writers that also update the index
}

// NewStore creates a Store rooted at opts.Root.
func NewStore(opts StoreOptions, log *logger.Logger) *Store {
	if opts.Location == nil {
		opts.Location = time.Local
	}
	return &Store{
		opts:   opts,
		logger: log,
		now:    time.Now,
		locks:  make(map[string]*sync.Mutex),
	}
}

// Root is the directory holding all folders.
func (s *Store) Root() string {
	return s.opts.Root
}

// Dir returns the directory for a location.
func (s *Store) Dir(location string) string {
	return filepath.Join(s.opts.Root, Sanitize(location))
}

func (s *Store) folderLock(folder string) *sync.Mutex {
	s.locksMu.Lock()
	defer s.locksMu.Unlock()
	mu, ok := s.locks[folder]
	if !ok {
		mu = &sync.Mutex{}
		s.locks[folder] = mu
	}
	return mu
}

// Hold keeps Clear from running until release is called. Callers pairing a
// Save with index updates hold it across both. Save itself does not take it.
func (s *Store) Hold() (release func()) {
	s.clearMu.RLock()
	return s.clearMu.RUnlock
}

// Clear removes every saved image and then runs after, typically emptying the
// index, with all writers held off. It returns the number of files removed.
func (s *Store) Clear(after func() error) (int, error) {
	s.clearMu.Lock()
	defer s.clearMu.Unlock()

	folders, err := s.Folders()
	if err != nil {
		return 0, err
	}

	removed := 0
	for _, folder := range folders {
		mu := s.folderLock(folder)
		mu.Lock()
		files, err := listImages(filepath.Join(s.opts.Root, folder))
		if err != nil {
			s.logger.Error("Error listing %s: %v", folder, err)
		}
		for _, f := range files {
			if err := os.Remove(f.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
				s.logger.Error("Error deleting file %s: %v", f.Name, err)
				continue
			}
			removed++
		}
		mu.Unlock()
	}

	if after != nil {
		if err := after(); err != nil {
			return removed, err
		}
	}
	return removed, nil
}

// Save writes data as <baseName>_<timestamp>.jpg into the location folder and
// then applies retention to that folder. Retention failures are logged only.
func (s *Store) Save(location, baseName string, data []byte) (*SavedFile, error) {
	folder := Sanitize(location)
	dir := filepath.Join(s.opts.Root, folder)

	mu := s.folderLock(folder)
	mu.Lock()
	defer mu.Unlock()

	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create folder %s: %w", dir, err)
	}

	ts := s.now().In(s.opts.Location)
	stem := Sanitize(baseName) + "_" + ts.Format(TimestampLayout)

	var (
		file *os.File
		name string
		err  error
	)
	for attempt := 0; attempt < 100; attempt++ {
		name = stem + ".jpg"
		if attempt > 0 {
			name = stem + "-" + strconv.Itoa(attempt) + ".jpg"
		}
		file, err = os.OpenFile(filepath.Join(dir, name), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
		if !errors.Is(err, os.ErrExist) {
			break
		}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create image file: %w", err)
	}

	path := file.Name()
	if _, err := file.Write(data); err != nil {
		file.Close()
		os.Remove(path)
		return nil, fmt.Errorf("failed to write image %s: %w", path, err)
	}
	if err := file.Close(); err != nil {
		os.Remove(path)
		return nil, fmt.Errorf("failed to close image %s: %w", path, err)
	}

	s.logger.Info("Saved frame %s", path)

	return &SavedFile{
		Folder:    folder,
		Filename:  name,
		Path:      path,
		Size:      int64(len(data)),
		Timestamp: ts,
		Evicted:   s.prune(folder, dir),
	}, nil
}

// MaxAllowed returns the retention limit for folder; zero or less means unlimited.
func (s *Store) MaxAllowed(folder string) int {
	if n, ok := s.opts.FolderLimits[folder]; ok {
		return n
	}
	if s.opts.MaxSavedPerFolder > 0 {
		return s.opts.MaxSavedPerFolder
	}
	return s.opts.MaxSaved
}

// FileInfo is one saved image in a folder listing.
type FileInfo struct {
	Name    string
	Path    string
	Size    int64
	ModTime time.Time
}

// List returns the images of a folder, oldest first.
func (s *Store) List(folder string) ([]FileInfo, error) {
	return listImages(filepath.Join(s.opts.Root, Sanitize(folder)))
}

// Folders returns the names of all folders under the root.
func (s *Store) Folders() ([]string, error) {
	entries, err := os.ReadDir(s.opts.Root)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read %s: %w", s.opts.Root, err)
	}
	var folders []string
	for _, e := range entries {
		if e.IsDir() {
			folders = append(folders, e.Name())
		}
	}
	return folders, nil
}

func listImages(dir string) ([]FileInfo, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	files := make([]FileInfo, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".jpg") {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		files = append(files, FileInfo{
			Name:    e.Name(),
			Path:    filepath.Join(dir, e.Name()),
			Size:    info.Size(),
			ModTime: info.ModTime(),
		})
	}

	sort.Slice(files, func(i, j int) bool {
		if !files[i].ModTime.Equal(files[j].ModTime) {
			return files[i].ModTime.Before(files[j].ModTime)
		}
		si, ni := splitCollision(files[i].Name)
		sj, nj := splitCollision(files[j].Name)
		if si != sj {
			return si < sj
		}
		return ni < nj
	})
	return files, nil
}

// splitCollision returns the stem of a saved file name and its collision
// number, 0 for the first file with that stem.
func splitCollision(name string) (string, int) {
	stem := strings.TrimSuffix(name, filepath.Ext(name))
	loc := collisionSuffix.FindStringIndex(stem)
	if loc == nil {
		return stem, 0
	}
	n, err := strconv.Atoi(stem[loc[0]+1:])
	if err != nil {
		return stem, 0
	}
	return stem[:loc[0]], n
}

// prune deletes the oldest files of folder above its limit and returns the
// removed paths. Caller holds the folder lock.
func (s *Store) prune(folder, dir string) []string {
	limit := s.MaxAllowed(folder)
	if limit <= 0 {
		return nil
	}

	files, err := listImages(dir)
	if err != nil {
		s.logger.Warning("Failed to list %s for retention: %v", dir, err)
		return nil
	}

	overflow := len(files) - limit
	if overflow <= 0 {
		return nil
	}

	s.logger.Info("Folder '%s' has %d files, pruning %d oldest", folder, len(files), overflow)
	evicted := make([]string, 0, overflow)
	for _, f := range files[:overflow] {
		if err := os.Remove(f.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
			s.logger.Warning("Failed to delete %s: %v", f.Path, err)
			continue
		}
		evicted = append(evicted, f.Path)
	}
	return evicted
}
