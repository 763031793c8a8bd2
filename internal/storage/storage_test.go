package storage

import (
	"alcyxob/plan-tracker/internal/config"
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestStepMediaKey(t *testing.T) {
	at := time.UnixMilli(1700000000123)
	tests := []struct {
		file string
		want string
	}{
		{"IMG_0001.PNG", "plans/p1/steps/s1_1700000000123.png"},
		{"/var/mobile/clip.mov", "plans/p1/steps/s1_1700000000123.mov"},
		{"noext", "plans/p1/steps/s1_1700000000123.jpg"},
		{"", "plans/p1/steps/s1_1700000000123.jpg"},
	}
	for _, tt := range tests {
		if got := StepMediaKey("p1", "s1", at, tt.file); got != tt.want {
			t.Errorf("StepMediaKey(%q) = %q, want %q", tt.file, got, tt.want)
		}
	}
}

func TestPublicBaseURL(t *testing.T) {
	tests := []struct {
		name string
		cfg  config.S3Config
		want string
	}{
		{"explicit", config.S3Config{PublicBaseURL: "https://cdn.example.com/", BucketName: "b"}, "https://cdn.example.com"},
		{"endpoint", config.S3Config{Endpoint: "http://minio:9000", BucketName: "media"}, "http://minio:9000/media"},
		{"aws", config.S3Config{Region: "eu-west-1", BucketName: "media"}, "https://media.s3.eu-west-1.amazonaws.com"},
	}
	for _, tt := range tests {
		if got := publicBaseURL(tt.cfg); got != tt.want {
			t.Errorf("%s: publicBaseURL = %q, want %q", tt.name, got, tt.want)
		}
	}
}

func TestUnconfigured(t *testing.T) {
	_, err := Unconfigured{}.Upload(context.Background(), "k", "image/png", strings.NewReader("x"), 1)
	if !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("err = %v", err)
	}
}
