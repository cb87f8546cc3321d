package persist

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// SaveFile writes v to path in the format named by its extension. The file
// is written next to path and renamed into place, so readers never observe
// a partial document.
func SaveFile(path string, v any) (err error) {
	codec, err := CodecFor(path)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}

	defer func() {
		if err != nil {
			err = errors.Join(err, os.Remove(tmp.Name()))
		}
	}()

	if err = codec.Encode(tmp, v); err != nil {
		return errors.Join(fmt.Errorf("encode %s: %w", path, err), tmp.Close())
	}

	if err = tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}

	if err = os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("rename %s: %w", path, err)
	}

	return nil
}

// LoadFile decodes path into v, which must be a pointer.
func LoadFile(path string, v any) error {
	codec, err := CodecFor(path)
	if err != nil {
		return err
	}

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	if err := codec.Decode(f, v); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}

	return nil
}
