package fuse_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/jacobsa/fusesession"
)

func TestBuildRequiresOutboundChannel(t *testing.T) {
	dir := t.TempDir()

	b := fuse.NewBuilder()
	b.MountPath = dir

	_, err := b.Build()
	if err == nil {
		t.Fatal("Build: expected an error, got nil")
	}
	if !errors.Is(err, fuse.EINVAL) {
		t.Errorf("Build: got %v, want something wrapping EINVAL", err)
	}
}

func TestBuildRequiresMountPath(t *testing.T) {
	b := fuse.NewBuilder()
	b.Requests = make(chan *fuse.Request, 1)

	_, err := b.Build()
	if err == nil {
		t.Fatal("Build: expected an error, got nil")
	}
	if !errors.Is(err, fuse.EINVAL) {
		t.Errorf("Build: got %v, want something wrapping EINVAL", err)
	}
}

func TestBuildRequiresCharDeviceAtDevicePath(t *testing.T) {
	dir := t.TempDir()

	notADevice := filepath.Join(dir, "not-a-device")
	if err := os.WriteFile(notADevice, []byte("x"), 0600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	b := fuse.NewBuilder()
	b.DevicePath = notADevice
	b.MountPath = dir
	b.Requests = make(chan *fuse.Request, 1)

	_, err := b.Build()
	if err == nil {
		t.Fatal("Build: expected an error, got nil")
	}
	if !errors.Is(err, fuse.ENODEV) {
		t.Errorf("Build: got %v, want something wrapping ENODEV", err)
	}
}

func TestBuildRequiresExistingDevicePath(t *testing.T) {
	dir := t.TempDir()

	b := fuse.NewBuilder()
	b.DevicePath = filepath.Join(dir, "does-not-exist")
	b.MountPath = dir
	b.Requests = make(chan *fuse.Request, 1)

	_, err := b.Build()
	if err == nil {
		t.Fatal("Build: expected an error, got nil")
	}
	if !errors.Is(err, fuse.ENOENT) {
		t.Errorf("Build: got %v, want something wrapping ENOENT", err)
	}
}

func TestNewBuilderDefaults(t *testing.T) {
	b := fuse.NewBuilder()

	if b.DevicePath != "/dev/fuse" {
		t.Errorf("DevicePath = %q, want /dev/fuse", b.DevicePath)
	}
	if len(b.MountOptions) == 0 {
		t.Error("MountOptions is empty, want the documented defaults")
	}
	if b.Cancellation.IsCancelled() {
		t.Error("fresh Cancellation reports cancelled")
	}
}
