package protocol

import (
	"bytes"
	"errors"
	"testing"
)

func TestParseIdentifyResponse(t *testing.T) {
	block := []byte{
		0x01, 0x04, // protocol 1.4
		0x2A, 0x00, 0x00, 0x10, // unit ID 0x1000002A
		0x0C, 0x14, // firmware 12.20
		0x0C, '0', '0', '6', '-', 'B', '3', '2', '5', '8', '-', '0', '0',
		0x0E, 'F', 'o', 'r', 'e', 'r', 'u', 'n', 'n', 'e', 'r', ' ', '2', '4', '5',
	}

	id, err := ParseIdentifyResponse(block)
	if err != nil {
		t.Fatalf("ParseIdentifyResponse() error: %v", err)
	}

	if id.ProtocolVersion() != "1.4" {
		t.Errorf("ProtocolVersion() = %q, want %q", id.ProtocolVersion(), "1.4")
	}
	if id.UnitID != 0x1000002A {
		t.Errorf("UnitID = 0x%08X, want 0x1000002A", id.UnitID)
	}
	if id.FirmwareVersion() != "12.20" {
		t.Errorf("FirmwareVersion() = %q, want %q", id.FirmwareVersion(), "12.20")
	}
	if id.PartNumber != "006-B3258-00" {
		t.Errorf("PartNumber = %q", id.PartNumber)
	}
	if id.Model != "Forerunner 245" {
		t.Errorf("Model = %q", id.Model)
	}
}

func TestParseIdentifyResponseMalformed(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"short fixed block", []byte{0x01, 0x04, 0x2A}},
		{"string length overruns", []byte{0x01, 0x04, 0, 0, 0, 0, 1, 0, 0xFF, 'x'}},
		{"missing model", []byte{0x01, 0x04, 0, 0, 0, 0, 1, 0, 0x01, 'p'}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseIdentifyResponse(tt.data); err == nil {
				t.Error("ParseIdentifyResponse() accepted malformed block")
			}
		})
	}
}

func TestParseListInstalledResponse(t *testing.T) {
	block := []byte{
		0x02, 0x00, // two apps
		0x05, 0x00, 0x00, 0x00, 0x07, 'D', 'o', 'z', 'e', 'F', 'a', 'c',
		0x22, 0x01, 0x00, 0x00, 0x04, 'T', 'i', 'd', 'e',
	}

	apps, err := ParseListInstalledResponse(block)
	if err != nil {
		t.Fatalf("ParseListInstalledResponse() error: %v", err)
	}
	if len(apps) != 2 {
		t.Fatalf("got %d apps, want 2", len(apps))
	}
	if apps[0].Name != "DozeFac" || apps[0].Version != 5 {
		t.Errorf("apps[0] = %+v", apps[0])
	}
	if apps[1].Name != "Tide" || apps[1].Version != 0x122 {
		t.Errorf("apps[1] = %+v", apps[1])
	}
}

func TestParseListInstalledResponseEmpty(t *testing.T) {
	apps, err := ParseListInstalledResponse([]byte{0x00, 0x00})
	if err != nil {
		t.Fatalf("ParseListInstalledResponse() error: %v", err)
	}
	if len(apps) != 0 {
		t.Errorf("got %d apps, want 0", len(apps))
	}
}

func TestParseListInstalledResponseTruncated(t *testing.T) {
	block := []byte{0x02, 0x00, 0x05, 0x00, 0x00, 0x00, 0x07, 'D'}
	if _, err := ParseListInstalledResponse(block); !errors.Is(err, ErrTruncated) {
		t.Errorf("error = %v, want ErrTruncated", err)
	}
}

func TestBuildTransferBegin(t *testing.T) {
	payload, err := BuildTransferBegin(TransferBegin{
		Kind:      0x01,
		TotalSize: 0x00020000,
		Segments:  0x0100,
		Digest:    0x4097,
		Name:      "Tide",
	})
	if err != nil {
		t.Fatalf("BuildTransferBegin() error: %v", err)
	}

	want := []byte{
		0x01,
		0x00, 0x00, 0x02, 0x00,
		0x00, 0x01,
		0x97, 0x40,
		0x04, 'T', 'i', 'd', 'e',
	}
	if !bytes.Equal(payload, want) {
		t.Errorf("BuildTransferBegin() = % X, want % X", payload, want)
	}
}

func TestBuildTransferSegment(t *testing.T) {
	payload, err := BuildTransferSegment(7, []byte{0xDE, 0xAD})
	if err != nil {
		t.Fatalf("BuildTransferSegment() error: %v", err)
	}
	want := []byte{0x07, 0x00, 0xDE, 0xAD}
	if !bytes.Equal(payload, want) {
		t.Errorf("BuildTransferSegment() = % X, want % X", payload, want)
	}

	if _, err := BuildTransferSegment(0, nil); err == nil {
		t.Error("BuildTransferSegment() accepted empty segment")
	}
	if _, err := BuildTransferSegment(0, make([]byte, MaxPayloadSize)); !errors.Is(err, ErrFrameTooLarge) {
		t.Errorf("oversized segment error = %v, want ErrFrameTooLarge", err)
	}
}

func TestParseQueryStatusResponse(t *testing.T) {
	state, received, err := ParseQueryStatusResponse([]byte{TransferStateReceiving, 0x06, 0x00})
	if err != nil {
		t.Fatalf("ParseQueryStatusResponse() error: %v", err)
	}
	if state != TransferStateReceiving || received != 6 {
		t.Errorf("got state=0x%02X received=%d", state, received)
	}

	if _, _, err := ParseQueryStatusResponse([]byte{0x01}); !errors.Is(err, ErrTruncated) {
		t.Errorf("error = %v, want ErrTruncated", err)
	}
}

func TestDeviceError(t *testing.T) {
	err := &DeviceError{Operation: OpTransferBegin, Code: StatusErrStorageFull}
	want := "TRANSFER_BEGIN rejected by device: ERR_STORAGE_FULL (0x06)"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}

	code, ok := IsDeviceError(err)
	if !ok || code != StatusErrStorageFull {
		t.Errorf("IsDeviceError() = (0x%02X, %v)", code, ok)
	}
	if _, ok := IsDeviceError(errors.New("other")); ok {
		t.Error("IsDeviceError() matched a non-device error")
	}
}
