package state

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/Sumatoshi-tech/tripstat/pkg/aggregate"
	"github.com/Sumatoshi-tech/tripstat/pkg/persist"
)

// Directory permissions for the state directory.
const dirPerm = 0o750

// FileRepository keeps state as JSON files in one directory, named
// "<date>_<prefix>_<kind>.json".
//
// The directory is not locked. Running two invocations against the same
// directory at once races on load, publish and retire; callers that need
// concurrency must hold an external lock on the directory.
type FileRepository struct {
	codec      persist.Codec
	logger     *slog.Logger
	dir        string
	prefix     string
	archiveDir string
}

// Option configures a FileRepository.
type Option func(*FileRepository)

// WithPrefix sets the dataset prefix of object names.
func WithPrefix(prefix string) Option {
	return func(r *FileRepository) { r.prefix = prefix }
}

// WithArchiveDir keeps an lz4-compressed copy of every retired object in dir.
func WithArchiveDir(dir string) Option {
	return func(r *FileRepository) { r.archiveDir = dir }
}

// WithLogger sets the logger used for recoverable conditions.
func WithLogger(logger *slog.Logger) Option {
	return func(r *FileRepository) { r.logger = logger }
}

// NewFileRepository creates a repository rooted at dir.
func NewFileRepository(dir string, opts ...Option) *FileRepository {
	r := &FileRepository{
		codec:  persist.NewJSONCodec(),
		logger: slog.Default(),
		dir:    dir,
		prefix: DefaultPrefix,
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Path returns the path of the named object.
func (r *FileRepository) Path(name string) string { return filepath.Join(r.dir, name) }

func (r *FileRepository) objectName(date string, kind Kind) string {
	return objectName(date, r.prefix, kind, r.codec)
}

// find returns the single live object of kind, or "" when there is none.
func (r *FileRepository) find(kind Kind) (string, error) {
	entries, err := os.ReadDir(r.dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", nil
		}

		return "", fmt.Errorf("list state dir: %w", err)
	}

	suffix := objectSuffix(r.prefix, kind, r.codec)

	var matches []string

	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || strings.HasPrefix(name, ".") || !strings.HasSuffix(name, suffix) {
			continue
		}

		matches = append(matches, name)
	}

	switch len(matches) {
	case 0:
		return "", nil
	case 1:
		return matches[0], nil
	default:
		slices.Sort(matches)

		return "", fmt.Errorf("%w: %d %s objects (%s)", ErrAmbiguousState, len(matches), kind, strings.Join(matches, ", "))
	}
}

// readValidated reads the named object and checks it against its schema.
func (r *FileRepository) readValidated(kind Kind, name string) ([]byte, error) {
	data, err := os.ReadFile(r.Path(name))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}

	err = validate(kind, data)
	if err != nil {
		return nil, &StateParseError{Kind: kind, Name: name, Err: err}
	}

	return data, nil
}

// LoadPriceAggregate implements Repository.
func (r *FileRepository) LoadPriceAggregate(ctx context.Context) (Loaded[aggregate.PriceRatio], error) {
	return loadFile(ctx, r, KindPrice, func(rec priceRecord) aggregate.PriceRatio {
		return rec.toAggregate()
	})
}

// LoadDistribution implements Repository.
func (r *FileRepository) LoadDistribution(ctx context.Context) (Loaded[aggregate.Distribution], error) {
	return loadFile(ctx, r, KindDistribution, func(d aggregate.Distribution) aggregate.Distribution {
		if d == nil {
			return aggregate.Distribution{}
		}

		return d
	})
}

func loadFile[R, T any](ctx context.Context, r *FileRepository, kind Kind, convert func(R) T) (Loaded[T], error) {
	err := ctx.Err()
	if err != nil {
		return Loaded[T]{}, err
	}

	name, err := r.find(kind)
	if err != nil || name == "" {
		return Loaded[T]{}, err
	}

	data, err := r.readValidated(kind, name)
	if err != nil {
		return recoverLoad(r.logger, Loaded[T]{Name: name}, err)
	}

	var rec R

	err = r.codec.Decode(bytes.NewReader(data), &rec)
	if err != nil {
		return recoverLoad(r.logger, Loaded[T]{Name: name}, &StateParseError{Kind: kind, Name: name, Err: err})
	}

	value := convert(rec)

	return Loaded[T]{Value: &value, Name: name}, nil
}

// recoverLoad turns a parse failure into an absent prior; other errors
// stay fatal.
func recoverLoad[T any](logger *slog.Logger, l Loaded[T], err error) (Loaded[T], error) {
	if !errors.Is(err, ErrStateParse) {
		return Loaded[T]{}, err
	}

	logger.Warn("prior state unusable, starting cold", "object", l.Name, "error", err)

	l.Invalid = err

	return l, nil
}

// LoadSeriesHandle implements Repository.
func (r *FileRepository) LoadSeriesHandle(ctx context.Context) (SeriesHandle, error) {
	err := ctx.Err()
	if err != nil {
		return SeriesHandle{}, err
	}

	name, err := r.find(KindSeries)
	if err != nil || name == "" {
		return SeriesHandle{}, err
	}

	handle := SeriesHandle{Name: name}

	entries, err := r.readSeries(name)
	if err != nil {
		r.logger.Warn("custom indicator log unreadable, appending without rerun check",
			"object", name, "error", err)

		handle.Invalid = &StateParseError{Kind: KindSeries, Name: name, Err: err}

		return handle, nil
	}

	handle.Dates = seriesDates(entries)

	return handle, nil
}

// LoadSeries decodes the whole custom indicator log. A missing log is empty.
func (r *FileRepository) LoadSeries(ctx context.Context) ([]aggregate.Indicator, error) {
	err := ctx.Err()
	if err != nil {
		return nil, err
	}

	name, err := r.find(KindSeries)
	if err != nil || name == "" {
		return nil, err
	}

	entries, err := r.readSeries(name)
	if err != nil {
		return nil, &StateParseError{Kind: KindSeries, Name: name, Err: err}
	}

	return entries, nil
}

func (r *FileRepository) readSeries(name string) ([]aggregate.Indicator, error) {
	file, err := os.Open(r.Path(name))
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", name, err)
	}
	defer file.Close()

	return ReadSeries(file)
}

// Commit implements Repository. New objects are written through temporary
// files and renamed into place; superseded objects are removed only after
// every new object is published.
func (r *FileRepository) Commit(ctx context.Context, u Update) (Published, error) {
	err := ctx.Err()
	if err != nil {
		return Published{}, err
	}

	err = os.MkdirAll(r.dir, dirPerm)
	if err != nil {
		return Published{}, fmt.Errorf("create state dir: %w", err)
	}

	pub := Published{Names: make(map[Kind]string, len(Kinds))}

	if !u.Price.Empty() {
		name := r.objectName(u.Date, KindPrice)

		err = persist.SaveFile(r.Path(name), r.codec, toPriceRecord(u.Price))
		if err != nil {
			return Published{}, err
		}

		pub.Names[KindPrice] = name
	}

	name := r.objectName(u.Date, KindDistribution)

	err = persist.SaveFile(r.Path(name), r.codec, u.Distribution.Clone())
	if err != nil {
		return Published{}, err
	}

	pub.Names[KindDistribution] = name

	name, err = r.appendSeries(u)
	if err != nil {
		return Published{}, err
	}

	pub.Names[KindSeries] = name

	err = r.retire(u, &pub)
	if err != nil {
		return pub, err
	}

	return pub, nil
}

// appendSeries republishes the prior log plus the new entry under the
// current date.
func (r *FileRepository) appendSeries(u Update) (string, error) {
	name := r.objectName(u.Date, KindSeries)

	err := persist.WriteAtomic(r.Path(name), func(w io.Writer) error {
		if u.Series.Exists() {
			copyErr := r.copyLog(w, u.Series.Name)
			if copyErr != nil {
				return copyErr
			}
		}

		return WriteSeriesEntry(w, r.codec, u.Indicator)
	})
	if err != nil {
		return "", fmt.Errorf("append series %s: %w", name, err)
	}

	return name, nil
}

func (r *FileRepository) copyLog(w io.Writer, name string) error {
	data, err := os.ReadFile(r.Path(name))
	if err != nil {
		return fmt.Errorf("read %s: %w", name, err)
	}

	_, err = w.Write(data)
	if err != nil {
		return fmt.Errorf("copy %s: %w", name, err)
	}

	if len(data) > 0 && data[len(data)-1] != '\n' {
		_, err = io.WriteString(w, "\n")
		if err != nil {
			return fmt.Errorf("copy %s: %w", name, err)
		}
	}

	return nil
}

// retire removes the superseded objects that were not overwritten in place.
func (r *FileRepository) retire(u Update, pub *Published) error {
	prior := map[Kind]string{
		KindPrice:        u.Supersedes[KindPrice],
		KindDistribution: u.Supersedes[KindDistribution],
		KindSeries:       u.Series.Name,
	}

	old := make([]string, 0, len(Kinds))

	for _, kind := range Kinds {
		name := prior[kind]
		if name == "" || name == pub.Names[kind] {
			continue
		}

		old = append(old, name)
	}

	for _, name := range old {
		path := r.Path(name)

		if r.archiveDir != "" {
			archived, err := persist.Archive(path, r.archiveDir)
			if err != nil {
				return fmt.Errorf("retire %s: %w", name, err)
			}

			pub.Archived = append(pub.Archived, archived)
		}

		err := os.Remove(path)
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("retire %s: %w", name, err)
		}

		pub.Retired = append(pub.Retired, name)
	}

	return nil
}
