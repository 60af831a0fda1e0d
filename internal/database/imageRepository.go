package database

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/ds124wfegd/memecaption/internal/entity"
	"github.com/ds124wfegd/memecaption/internal/pkg/storage"
)

func NewImageRepository(storage storage.FileStorage) ImageRepository {
	return &fileImageRepository{storage: storage}
}

func (r *fileImageRepository) Save(image *entity.ImageRecord) error {
	data, err := json.Marshal(image)
	if err != nil {
		return fmt.Errorf("marshal image record: %w", err)
	}
	return r.storage.Save(r.metadataPath(image.ID), bytes.NewReader(data))
}

func (r *fileImageRepository) FindByID(id string) (*entity.ImageRecord, error) {
	reader, err := r.storage.Get(r.metadataPath(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, entity.ErrImageNotFound
		}
		return nil, err
	}
	defer reader.Close()

	var image entity.ImageRecord
	if err := json.NewDecoder(reader).Decode(&image); err != nil {
		return nil, fmt.Errorf("decode image record %s: %w", id, err)
	}
	return &image, nil
}

// Delete removes the metadata, the original and every processed output of an image.
func (r *fileImageRepository) Delete(id string) error {
	if !r.storage.Exists(r.metadataPath(id)) {
		return entity.ErrImageNotFound
	}
	for _, path := range []string{
		filepath.Join("processed", id),
		filepath.Join("original", id),
		r.metadataPath(id),
	} {
		if err := r.storage.Delete(path); err != nil {
			return err
		}
	}
	return nil
}

func (r *fileImageRepository) SaveFile(id string, name string, file io.Reader) error {
	return r.storage.Save(r.GetFilePath(id, name), file)
}

func (r *fileImageRepository) OpenFile(id string, name string) (io.ReadCloser, error) {
	rc, err := r.storage.Get(r.GetFilePath(id, name))
	if os.IsNotExist(err) {
		return nil, entity.ErrImageNotFound
	}
	return rc, err
}

func (r *fileImageRepository) GetFilePath(id string, name string) string {
	if name == OriginalFile {
		return filepath.Join("original", id)
	}
	return filepath.Join("processed", id, name)
}

func (r *fileImageRepository) metadataPath(id string) string {
	return filepath.Join("metadata", id+".json")
}
