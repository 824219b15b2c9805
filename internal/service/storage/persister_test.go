package storage

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/jarupong555/Detec-V1.0/internal/dto"
	"github.com/jarupong555/Detec-V1.0/internal/logger"
	"github.com/jarupong555/Detec-V1.0/internal/model"
	"github.com/jarupong555/Detec-V1.0/internal/repository/sqlite"
)

type recordingNotifier struct {
	mu       sync.Mutex
	payloads []dto.NotificationPayload
	err      error
}

func (n *recordingNotifier) Notify(ctx context.Context, p dto.NotificationPayload) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.payloads = append(n.payloads, p)
	return n.err
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []dto.DetectionEvent
}

func (p *recordingPublisher) Publish(e dto.DetectionEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
}

func testCamera() model.Camera {
	return model.Camera{ID: "ab12cd34", Name: "Front", Location: "gate"}
}

func TestPersister_PersistIndexesNotifiesAndPublishes(t *testing.T) {
	db, err := sqlite.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("sqlite.New: %v", err)
	}
	defer db.Close()
	imageRepo := sqlite.NewImageRepository(db)
	detectionRepo := sqlite.NewDetectionRepository(db)

	store := newTestStore(t, StoreOptions{MaxSaved: 1})
	notifier := &recordingNotifier{err: errors.New("endpoint down")}
	publisher := &recordingPublisher{}
	bangkok := time.FixedZone("ICT", 7*3600)

	p := NewPersister(store, imageRepo, detectionRepo, notifier, publisher,
		PersisterOptions{Workers: 1, QueueSize: 4, Location: bangkok}, logger.Nop())
	defer p.Stop()

	at := time.Date(2024, 3, 1, 1, 0, 0, 0, time.UTC)
	track := 7
	dets := []dto.DetectionResult{{ClassID: 0, Label: "person", Confidence: 0.9, X: 1, Y: 2, Width: 3, Height: 4, TrackID: &track}}

	p.Persist(SaveJob{Camera: testCamera(), JPEG: []byte("one"), Detections: dets, At: at})
	p.Persist(SaveJob{Camera: testCamera(), JPEG: []byte("two"), Detections: dets, At: at})

	// Retention of 1 evicts the first image from disk and from the index.
	count, _ := imageRepo.GetTotalCount(nil)
	if count != 1 {
		t.Errorf("index holds %d images, expected 1", count)
	}
	images, _ := imageRepo.GetAll(&dto.ImageFilters{Location: "gate"})
	if len(images) != 1 || images[0].CameraID != "ab12cd34" {
		t.Fatalf("unexpected index %+v", images)
	}
	byImage, err := detectionRepo.GetByImageIDs([]int64{images[0].ID})
	if err != nil {
		t.Fatalf("GetByImageIDs: %v", err)
	}
	stored := byImage[images[0].ID]
	if len(stored) != 1 || stored[0].ObjectName != "person" || stored[0].ClassID != 0 {
		t.Fatalf("detections not indexed: %+v", stored)
	}
	if stored[0].TrackID == nil || *stored[0].TrackID != 7 || stored[0].Width != 3 {
		t.Errorf("detection fields lost: %+v", stored[0])
	}

	if len(notifier.payloads) != 2 {
		t.Fatalf("notified %d times, expected 2 (failures are not retried)", len(notifier.payloads))
	}
	payload := notifier.payloads[1]
	if payload.TimeUTC != "2024-03-01T01:00:00Z" || payload.TimeLocal != "2024-03-01T08:00:00+07:00" {
		t.Errorf("unexpected payload times %+v", payload)
	}
	if payload.FrameName+".jpg" != images[0].Filename {
		t.Errorf("frame name %q does not match saved file %q", payload.FrameName, images[0].Filename)
	}

	if len(publisher.events) != 2 || publisher.events[1].ImageID != images[0].ID {
		t.Errorf("unexpected events %+v", publisher.events)
	}
}

func TestPersister_SubmitIsAsyncAndBounded(t *testing.T) {
	store := newTestStore(t, StoreOptions{MaxSaved: 10})
	block := make(chan struct{})
	notifier := &blockingNotifier{release: block, started: make(chan struct{})}

	p := NewPersister(store, nil, nil, notifier, nil, PersisterOptions{Workers: 1, QueueSize: 1}, logger.Nop())

	dets := []dto.DetectionResult{{Label: "person"}}
	if !p.Submit(testCamera(), []byte("a"), dets, time.Now()) {
		t.Fatal("first submit rejected")
	}
	// Wait for the worker to pick up the first job and block on the notifier.
	<-notifier.started

	if !p.Submit(testCamera(), []byte("b"), dets, time.Now()) {
		t.Fatal("second submit should fit in the queue")
	}
	if p.Submit(testCamera(), []byte("c"), dets, time.Now()) {
		t.Error("submit should fail fast when the queue is full")
	}

	close(block)
	p.Stop()

	if p.Submit(testCamera(), []byte("d"), dets, time.Now()) {
		t.Error("submit after Stop should be rejected")
	}
	files, _ := store.List("gate")
	if len(files) != 2 {
		t.Errorf("saved %d files, expected 2", len(files))
	}
}

type blockingNotifier struct {
	release chan struct{}
	started chan struct{}
	once    sync.Once
}

func (n *blockingNotifier) Notify(ctx context.Context, p dto.NotificationPayload) error {
	n.once.Do(func() { close(n.started) })
	<-n.release
	return nil
}

func TestBaseName(t *testing.T) {
	if got := BaseName(model.Camera{ID: "ab12cd34"}, []dto.DetectionResult{{Label: "car"}, {Label: "person"}}); got != "car_ab12cd34" {
		t.Errorf("BaseName = %q", got)
	}
	if got := BaseName(model.Camera{ID: "x", Name: "Gate"}, nil); got != "object_Gate" {
		t.Errorf("BaseName without detections = %q", got)
	}
}
