package nakama

import (
	"context"
	"errors"
	"sort"
	"testing"

	"fillblank/internal/ports"

	"github.com/heroiclabs/nakama-common/api"
	"github.com/heroiclabs/nakama-common/runtime"
)

// fakeStorage keeps objects in memory and pages List two at a time.
type fakeStorage struct {
	objects map[string]string
	writes  []*runtime.StorageWrite
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{objects: make(map[string]string)}
}

func (f *fakeStorage) StorageRead(ctx context.Context, reads []*runtime.StorageRead) ([]*api.StorageObject, error) {
	var out []*api.StorageObject
	for _, r := range reads {
		if v, ok := f.objects[r.Collection+"/"+r.Key]; ok {
			out = append(out, &api.StorageObject{Collection: r.Collection, Key: r.Key, Value: v})
		}
	}
	return out, nil
}

func (f *fakeStorage) StorageWrite(ctx context.Context, writes []*runtime.StorageWrite) ([]*api.StorageObjectAck, error) {
	var acks []*api.StorageObjectAck
	for _, w := range writes {
		f.writes = append(f.writes, w)
		f.objects[w.Collection+"/"+w.Key] = w.Value
		acks = append(acks, &api.StorageObjectAck{Collection: w.Collection, Key: w.Key})
	}
	return acks, nil
}

func (f *fakeStorage) StorageDelete(ctx context.Context, deletes []*runtime.StorageDelete) error {
	for _, d := range deletes {
		delete(f.objects, d.Collection+"/"+d.Key)
	}
	return nil
}

func (f *fakeStorage) StorageList(ctx context.Context, callerID, userID, collection string, limit int, cursor string) ([]*api.StorageObject, string, error) {
	var keys []string
	for k := range f.objects {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	start := 0
	if cursor != "" {
		for i, k := range keys {
			if k == cursor {
				start = i
			}
		}
	}
	var out []*api.StorageObject
	for i := start; i < len(keys); i++ {
		if len(out) == 2 {
			return out, keys[i], nil
		}
		key := keys[i][len(collection)+1:]
		out = append(out, &api.StorageObject{Collection: collection, Key: key, Value: f.objects[keys[i]]})
	}
	return out, "", nil
}

func TestStorageAdapterRoundTrip(t *testing.T) {
	ctx := context.Background()
	nk := newFakeStorage()
	store := NewNakamaStorageAdapter(nk)

	if _, err := store.Load(ctx, "ABC123"); !errors.Is(err, ports.ErrSnapshotNotFound) {
		t.Fatalf("Load missing error = %v, want ErrSnapshotNotFound", err)
	}
	if err := store.Save(ctx, "ABC123", []byte(`{"code":"ABC123"}`)); err != nil {
		t.Fatalf("Save error: %v", err)
	}
	w := nk.writes[0]
	if w.Collection != LobbyCollection || w.PermissionRead != 0 || w.PermissionWrite != 0 || w.UserID != "" {
		t.Fatalf("write = %+v, want a hidden system object", w)
	}

	got, err := store.Load(ctx, "ABC123")
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if string(got) != `{"code":"ABC123"}` {
		t.Fatalf("Load = %s", got)
	}

	if err := store.Delete(ctx, "ABC123"); err != nil {
		t.Fatalf("Delete error: %v", err)
	}
	if _, err := store.Load(ctx, "ABC123"); !errors.Is(err, ports.ErrSnapshotNotFound) {
		t.Fatalf("Load after delete error = %v", err)
	}
}

func TestStorageAdapterListPages(t *testing.T) {
	ctx := context.Background()
	store := NewNakamaStorageAdapter(newFakeStorage())
	want := []string{"AAAAAA", "BBBBBB", "CCCCCC", "DDDDDD", "EEEEEE"}
	for _, code := range want {
		if err := store.Save(ctx, code, []byte("{}")); err != nil {
			t.Fatalf("Save error: %v", err)
		}
	}

	codes, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List error: %v", err)
	}
	if len(codes) != len(want) {
		t.Fatalf("List = %v, want %v", codes, want)
	}
	for i := range want {
		if codes[i] != want[i] {
			t.Fatalf("List = %v, want %v", codes, want)
		}
	}
}
