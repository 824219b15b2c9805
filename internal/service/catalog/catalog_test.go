package catalog

import (
	"errors"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/jarupong555/Detec-V1.0/internal/dto"
	"github.com/jarupong555/Detec-V1.0/internal/logger"
	"github.com/jarupong555/Detec-V1.0/internal/model"
	"github.com/jarupong555/Detec-V1.0/internal/repository/sqlite"
)

func newTestService(t *testing.T, defaultClasses string) *Service {
	t.Helper()
	db, err := sqlite.New(filepath.Join(t.TempDir(), "catalog.db"))
	if err != nil {
		t.Fatalf("sqlite.New: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	s := NewService(sqlite.NewCameraRepository(db), sqlite.NewSettingsRepository(db), defaultClasses, logger.Nop())
	n := 0
	s.newID = func() string {
		n++
		return fmt.Sprintf("cam%05d", n)
	}
	return s
}

func TestValidate(t *testing.T) {
	blank := "  "
	tests := []struct {
		name    string
		req     dto.CameraRequest
		wantErr bool
	}{
		{"usb index", dto.CameraRequest{Protocol: "usb", Source: "0"}, false},
		{"rtsp upper case", dto.CameraRequest{Protocol: "RTSP", Source: "rtsp://cam/1"}, false},
		{"blank classes", dto.CameraRequest{Protocol: "hls", Source: "http://x/index.m3u8", DetectClasses: &blank}, false},
		{"unknown protocol", dto.CameraRequest{Protocol: "ftp", Source: "x"}, true},
		{"missing source", dto.CameraRequest{Protocol: "usb", Source: " "}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cam, err := Validate(tt.req)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidCamera) {
					t.Errorf("expected ErrInvalidCamera, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error %v", err)
			}
			if !cam.Protocol.Valid() {
				t.Errorf("protocol not normalized: %q", cam.Protocol)
			}
			if _, ok := cam.ClassOverride(); ok && tt.name == "blank classes" {
				t.Error("blank classes should not become an override")
			}
		})
	}
}

func TestService_CreateGetDelete(t *testing.T) {
	s := newTestService(t, "person")

	var deleted []string
	s.OnDelete(func(id string) { deleted = append(deleted, id) })

	cam, err := s.Create(dto.CameraRequest{Name: "Front", Location: "gate", Protocol: "rtsp", Source: "rtsp://cam/1"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if cam.ID != "cam00001" || cam.CreatedAt.IsZero() {
		t.Errorf("unexpected camera %+v", cam)
	}

	got, err := s.Get(cam.ID)
	if err != nil || got.Source != "rtsp://cam/1" || got.Protocol != model.ProtocolRTSP {
		t.Fatalf("Get = %+v, %v", got, err)
	}

	if _, err := s.Get("missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	ok, err := s.Delete(cam.ID)
	if err != nil || !ok {
		t.Fatalf("Delete = %v, %v", ok, err)
	}
	ok, _ = s.Delete(cam.ID)
	if ok {
		t.Error("second delete should report false")
	}
	if len(deleted) != 1 || deleted[0] != cam.ID {
		t.Errorf("delete hooks ran for %v", deleted)
	}
}

func TestService_GlobalClasses(t *testing.T) {
	s := newTestService(t, "person")

	if got := s.GlobalClasses(); got != "" {
		t.Errorf("unset GlobalClasses = %q", got)
	}
	if got := s.EffectiveClasses(); got != "person" {
		t.Errorf("EffectiveClasses falls back to default, got %q", got)
	}

	if err := s.SetGlobalClasses(" car,truck "); err != nil {
		t.Fatalf("SetGlobalClasses: %v", err)
	}
	if got := s.GlobalClasses(); got != "car,truck" {
		t.Errorf("GlobalClasses = %q", got)
	}

	if got := newTestService(t, "").EffectiveClasses(); got != "all" {
		t.Errorf("EffectiveClasses without defaults = %q", got)
	}
}

func TestParseCameraList(t *testing.T) {
	reqs, err := ParseCameraList("Front,gate,rtsp,rtsp://u:p@cam/1?a=1,b=2; Desk,office,usb,0;")
	if err != nil {
		t.Fatalf("ParseCameraList: %v", err)
	}
	if len(reqs) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(reqs))
	}
	if reqs[0].Source != "rtsp://u:p@cam/1?a=1,b=2" || reqs[1].Name != "Desk" || reqs[1].Source != "0" {
		t.Errorf("unexpected entries %+v", reqs)
	}

	if _, err := ParseCameraList("broken,entry"); err == nil {
		t.Error("expected error for short entry")
	}
}

func TestService_SeedSkipsExistingSources(t *testing.T) {
	s := newTestService(t, "")

	added, err := s.Seed("Front,gate,rtsp,rtsp://cam/1;Bad,x,ftp,y")
	if err != nil || len(added) != 1 {
		t.Fatalf("first Seed = %v, %v", added, err)
	}

	added, err = s.Seed("Front again,gate,rtsp,rtsp://cam/1;Desk,office,usb,0")
	if err != nil {
		t.Fatalf("second Seed: %v", err)
	}
	if len(added) != 1 || added[0].Name != "Desk" {
		t.Errorf("expected only Desk to be added, got %+v", added)
	}

	all, _ := s.List()
	if len(all) != 2 {
		t.Errorf("catalog has %d cameras", len(all))
	}
}
