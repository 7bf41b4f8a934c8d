package nakama

import (
	"context"

	"fillblank/internal/ports"

	"github.com/heroiclabs/nakama-common/api"
	"github.com/heroiclabs/nakama-common/runtime"
)

// StorageModule is the part of runtime.NakamaModule snapshots need.
type StorageModule interface {
	StorageRead(ctx context.Context, reads []*runtime.StorageRead) ([]*api.StorageObject, error)
	StorageWrite(ctx context.Context, writes []*runtime.StorageWrite) ([]*api.StorageObjectAck, error)
	StorageDelete(ctx context.Context, deletes []*runtime.StorageDelete) error
	StorageList(ctx context.Context, callerID, userID, collection string, limit int, cursor string) ([]*api.StorageObject, string, error)
}

const storageListPage = 100

// NakamaStorageAdapter implements ports.SnapshotStore with Nakama storage
// objects owned by the system user and hidden from clients.
type NakamaStorageAdapter struct {
	nk StorageModule
}

// NewNakamaStorageAdapter creates a new storage adapter.
func NewNakamaStorageAdapter(nk StorageModule) *NakamaStorageAdapter {
	return &NakamaStorageAdapter{nk: nk}
}

func (a *NakamaStorageAdapter) Save(ctx context.Context, code string, data []byte) error {
	_, err := a.nk.StorageWrite(ctx, []*runtime.StorageWrite{{
		Collection:      LobbyCollection,
		Key:             code,
		Value:           string(data),
		PermissionRead:  0,
		PermissionWrite: 0,
	}})
	return err
}

func (a *NakamaStorageAdapter) Load(ctx context.Context, code string) ([]byte, error) {
	objects, err := a.nk.StorageRead(ctx, []*runtime.StorageRead{{Collection: LobbyCollection, Key: code}})
	if err != nil {
		return nil, err
	}
	if len(objects) == 0 {
		return nil, ports.ErrSnapshotNotFound
	}
	return []byte(objects[0].GetValue()), nil
}

func (a *NakamaStorageAdapter) Delete(ctx context.Context, code string) error {
	return a.nk.StorageDelete(ctx, []*runtime.StorageDelete{{Collection: LobbyCollection, Key: code}})
}

func (a *NakamaStorageAdapter) List(ctx context.Context) ([]string, error) {
	var codes []string
	cursor := ""
	for {
		objects, next, err := a.nk.StorageList(ctx, "", "", LobbyCollection, storageListPage, cursor)
		if err != nil {
			return nil, err
		}
		for _, obj := range objects {
			codes = append(codes, obj.GetKey())
		}
		if next == "" {
			return codes, nil
		}
		cursor = next
	}
}

var _ ports.SnapshotStore = (*NakamaStorageAdapter)(nil)
