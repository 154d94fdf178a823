package publish

import (
	"context"
	"errors"
	"strings"
	"testing"

	"moodcast/storage"
	"moodcast/types"

	"go.uber.org/zap/zaptest"
)

type fakeStore struct {
	prefix string
	puts   map[string]string
	err    error
}

func (f *fakeStore) Key(name string) string { return storage.ObjectKey(f.prefix, name) }
func (f *fakeStore) URL(key string) string  { return "s3://bucket/" + key }

func (f *fakeStore) PutFile(_ context.Context, key, localPath, contentType string) error {
	if f.err != nil {
		return f.err
	}
	if f.puts == nil {
		f.puts = map[string]string{}
	}
	f.puts[key] = localPath + "|" + contentType
	return nil
}

func TestS3Publisher(t *testing.T) {
	store := &fakeStore{prefix: "videos"}
	p := NewS3Publisher(store, zaptest.NewLogger(t))

	url, err := p.Publish(context.Background(), Video{JobID: "sad_1234", Path: "output/sad_1234.mp4"})
	if err != nil {
		t.Fatal(err)
	}
	if url != "s3://bucket/videos/sad_1234.mp4" {
		t.Fatalf("url = %q", url)
	}
	if got := store.puts["videos/sad_1234.mp4"]; got != "output/sad_1234.mp4|video/mp4" {
		t.Fatalf("put = %q", got)
	}
}

func TestS3PublisherError(t *testing.T) {
	store := &fakeStore{err: errors.New("access denied")}
	p := NewS3Publisher(store, nil)
	if _, err := p.Publish(context.Background(), Video{JobID: "j", Path: "j.mp4"}); err == nil || !strings.Contains(err.Error(), "access denied") {
		t.Fatalf("err = %v", err)
	}
}

func TestGenerateMetadata(t *testing.T) {
	meta := GenerateMetadata(Video{Emotion: &types.EmotionResponse{
		EmotionTag: "deeply_sad",
		VoiceText:  "You are not alone.",
	}}, "22")

	if meta.Title != "A moment for when you feel deeply sad" {
		t.Errorf("title = %q", meta.Title)
	}
	if !strings.HasPrefix(meta.Description, "You are not alone.") || !strings.Contains(meta.Description, "#deeply_sad") {
		t.Errorf("description = %q", meta.Description)
	}
	if meta.CategoryID != "22" || meta.Tags[0] != "deeply_sad" {
		t.Errorf("meta = %+v", meta)
	}

	if plain := GenerateMetadata(Video{}, "22"); !strings.Contains(plain.Title, "calm") {
		t.Errorf("title without emotion = %q", plain.Title)
	}
}
