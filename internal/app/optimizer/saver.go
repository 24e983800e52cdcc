package optimizer

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

// FileSaver - сохраняет каждую строку отчёта со склеенными рядами в JSON
type FileSaver struct {
	dir string
}

// NewFileSaver - конструктор для FileSaver
func NewFileSaver(dir string) *FileSaver {
	return &FileSaver{dir: dir}
}

// Save пишет <метод>_<потери>.json и возвращает пути созданных файлов.
func (s *FileSaver) Save(results []Result) ([]string, error) {
	if len(results) == 0 {
		return nil, nil
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return nil, errors.Wrapf(err, "create %s", s.dir)
	}

	paths := make([]string, 0, len(results))
	for _, res := range results {
		path := filepath.Join(s.dir, fmt.Sprintf("%s_%s.json", res.Report.Method, res.Report.Loss))
		data, err := json.MarshalIndent(res, "", "  ")
		if err != nil {
			return paths, errors.Wrapf(err, "encode %s", path)
		}
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return paths, errors.Wrapf(err, "write %s", path)
		}
		paths = append(paths, path)
	}
	return paths, nil
}
