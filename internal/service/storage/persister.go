package storage

import (
	"context"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/jarupong555/Detec-V1.0/internal/dto"
	"github.com/jarupong555/Detec-V1.0/internal/logger"
	"github.com/jarupong555/Detec-V1.0/internal/model"
	"github.com/jarupong555/Detec-V1.0/internal/repository"
)

// Notifier delivers a saved-image notification.
type Notifier interface {
	Notify(ctx context.Context, payload dto.NotificationPayload) error
}

// Publisher fans detection events out to live subscribers.
type Publisher interface {
	Publish(event dto.DetectionEvent)
}

// SaveJob is one detection image waiting to be persisted.
type SaveJob struct {
	Camera     model.Camera
	JPEG       []byte
	Detections []dto.DetectionResult
	At         time.Time
}

// PersisterOptions configure the worker pool.
type PersisterOptions struct {
	Workers       int
	QueueSize     int
	NotifyTimeout time.Duration
	Location      *time.Location
}

// Persister saves detection images off the streaming path. A fixed pool of
// workers drains a bounded queue; each job is written to disk, indexed,
// announced to websocket clients and reported to the notification endpoint.
type Persister struct {
	store         *Store
	imageRepo     repository.ImageRepository
	detectionRepo repository.DetectionRepository
	notifier      Notifier
	publisher     Publisher
	opts          PersisterOptions
	logger        *logger.Logger

	mu     sync.RWMutex
	queue  chan SaveJob
	closed bool
	wg     sync.WaitGroup
}

// NewPersister creates a Persister and starts its workers. Repositories,
// notifier and publisher may be nil.
func NewPersister(store *Store, imageRepo repository.ImageRepository, detectionRepo repository.DetectionRepository,
	notifier Notifier, publisher Publisher, opts PersisterOptions, log *logger.Logger) *Persister {
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	if opts.QueueSize < 1 {
		opts.QueueSize = 1
	}
	if opts.NotifyTimeout <= 0 {
		opts.NotifyTimeout = 5 * time.Second
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}

	p := &Persister{
		store:         store,
		imageRepo:     imageRepo,
		detectionRepo: detectionRepo,
		notifier:      notifier,
		publisher:     publisher,
		opts:          opts,
		logger:        log,
		queue:         make(chan SaveJob, opts.QueueSize),
	}

	for i := 0; i < opts.Workers; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}
	p.logger.Info("Persister started with %d worker(s)", opts.Workers)
	return p
}

// Submit enqueues a save without blocking. It returns false when the queue is
// full or the persister is stopped.
func (p *Persister) Submit(camera model.Camera, jpeg []byte, detections []dto.DetectionResult, at time.Time) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return false
	}

	select {
	case p.queue <- SaveJob{Camera: camera, JPEG: jpeg, Detections: detections, At: at}:
		return true
	default:
		p.logger.Warning("Save queue full for camera %s - skipping", camera.ID)
		return false
	}
}

// Stop stops accepting jobs and waits for queued ones to finish.
func (p *Persister) Stop() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.queue)
	p.mu.Unlock()

	p.wg.Wait()
	p.logger.Info("All persister workers stopped")
}

func (p *Persister) worker(id int) {
	defer p.wg.Done()

	p.logger.Info("Persister worker %d started", id)
	for job := range p.queue {
		p.Persist(job)
	}
	p.logger.Info("Persister worker %d stopped", id)
}

// BaseName builds "<class>_<camera>" from the first detection.
func BaseName(camera model.Camera, detections []dto.DetectionResult) string {
	class := "object"
	if len(detections) > 0 && detections[0].Label != "" {
		class = detections[0].Label
	}
	return class + "_" + camera.DisplayName()
}

// Persist handles one job synchronously.
func (p *Persister) Persist(job SaveJob) {
	cam := job.Camera
	release := p.store.Hold()
	saved, err := p.store.Save(cam.StorageKey(), BaseName(cam, job.Detections), job.JPEG)
	if err != nil {
		release()
		p.logger.Error("Camera %s: failed to save detection: %v", cam.ID, err)
		return
	}

	imageID := p.index(cam, saved, job.Detections)
	p.unindex(saved.Evicted)
	release()

	if p.publisher != nil {
		p.publisher.Publish(dto.DetectionEvent{
			CameraID:   cam.ID,
			Camera:     cam.DisplayName(),
			Location:   saved.Folder,
			Filename:   saved.Filename,
			ImageID:    imageID,
			Timestamp:  saved.Timestamp.Format(time.RFC3339),
			Detections: job.Detections,
		})
	}

	p.notify(saved, job.At)
}

func (p *Persister) index(cam model.Camera, saved *SavedFile, detections []dto.DetectionResult) int64 {
	if p.imageRepo == nil {
		return 0
	}

	imageID, err := p.imageRepo.Insert(&model.Image{
		Filename:  saved.Filename,
		Camera:    cam.DisplayName(),
		CameraID:  cam.ID,
		Location:  saved.Folder,
		Timestamp: saved.Timestamp,
		FilePath:  saved.Path,
		FileSize:  saved.Size,
	})
	if err != nil {
		p.logger.Error("Error saving image to database %s: %v", saved.Filename, err)
		return 0
	}

	if p.detectionRepo != nil {
		rows := make([]model.Detection, 0, len(detections))
		for _, det := range detections {
			rows = append(rows, model.Detection{
				ImageID:    imageID,
				ClassID:    det.ClassID,
				ObjectName: det.Label,
				TrackID:    det.TrackID,
				X:          det.X,
				Y:          det.Y,
				Width:      det.Width,
				Height:     det.Height,
				Confidence: det.Confidence,
			})
		}
		if err := p.detectionRepo.InsertBatch(rows); err != nil {
			p.logger.Error("Error saving detections to database: %v", err)
		}
	}
	return imageID
}

func (p *Persister) unindex(paths []string) {
	if p.imageRepo == nil {
		return
	}
	for _, path := range paths {
		if err := p.imageRepo.DeleteByPath(path); err != nil {
			p.logger.Warning("Failed to remove %s from index: %v", path, err)
		}
	}
}

func (p *Persister) notify(saved *SavedFile, at time.Time) {
	if p.notifier == nil {
		return
	}

	payload := dto.NotificationPayload{
		FrameName: strings.TrimSuffix(saved.Filename, filepath.Ext(saved.Filename)),
		TimeUTC:   at.UTC().Format(time.RFC3339),
		TimeLocal: at.In(p.opts.Location).Format(time.RFC3339),
	}

	ctx, cancel := context.WithTimeout(context.Background(), p.opts.NotifyTimeout)
	defer cancel()
	if err := p.notifier.Notify(ctx, payload); err != nil {
		p.logger.Warning("Notify failed for %s: %v", payload.FrameName, err)
	}
}
