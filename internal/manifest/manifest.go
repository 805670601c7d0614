package manifest

import (
	"context"
	"errors"
	"fmt"
	"math"
	"path"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/hupe1980/kea/blobstore"
	"github.com/hupe1980/kea/codec"
)

const (
	// Dir is the blob prefix of manifest generations.
	Dir = "manifest/"
	// CurrentFileName names the blob pointing at the latest manifest.
	CurrentFileName = "CURRENT"
	// CurrentVersion is the version of the manifest format.
	CurrentVersion = 1
)

// ObjectKind distinguishes groups from datasets.
type ObjectKind string

const (
	KindGroup   ObjectKind = "group"
	KindDataset ObjectKind = "dataset"
)

// Manifest describes a container at a specific point in time.
type Manifest struct {
	Version       int                `json:"version"`
	ID            uint64             `json:"id"`
	CreatedAt     time.Time          `json:"created_at"`
	UUID          string             `json:"uuid"`
	NextDatasetID uint64             `json:"next_dataset_id"`
	Objects       map[string]*Object `json:"objects"`
}

// New creates a manifest holding only the root group.
func New(uuid string) *Manifest {
	return &Manifest{
		Version:       CurrentVersion,
		CreatedAt:     time.Now(),
		UUID:          uuid,
		NextDatasetID: 1,
		Objects: map[string]*Object{
			"/": {Kind: KindGroup},
		},
	}
}

// Object is a group or dataset.
type Object struct {
	Kind       ObjectKind           `json:"kind"`
	Attributes map[string]Attribute `json:"attributes,omitempty"`
	Dataset    *Dataset             `json:"dataset,omitempty"`
}

// Attribute is a typed scalar attached to an object.
type Attribute struct {
	Type   string `json:"type"` // int, uint, float or string
	Int    int64  `json:"int,omitempty"`
	Uint   uint64 `json:"uint,omitempty"`
	Float  Float  `json:"float,omitempty"`
	String string `json:"string,omitempty"`
}

// Float is a float64 that round-trips NaN and infinities through JSON.
type Float float64

// MarshalJSON encodes non-finite values as strings.
func (f Float) MarshalJSON() ([]byte, error) {
	v := float64(f)
	switch {
	case math.IsNaN(v):
		return []byte(`"NaN"`), nil
	case math.IsInf(v, 1):
		return []byte(`"+Inf"`), nil
	case math.IsInf(v, -1):
		return []byte(`"-Inf"`), nil
	}
	return strconv.AppendFloat(nil, v, 'g', -1, 64), nil
}

// UnmarshalJSON accepts numbers and the strings written by MarshalJSON.
func (f *Float) UnmarshalJSON(b []byte) error {
	s := string(b)
	if len(s) >= 2 && s[0] == '"' {
		s = s[1 : len(s)-1]
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("manifest: invalid float %s", b)
	}
	*f = Float(v)
	return nil
}

// Member is one named field of a compound type.
type Member struct {
	Name string `json:"name"`
	Kind uint8  `json:"kind"`
}

// Type describes a dataset's element type.
type Type struct {
	Class   uint8    `json:"class"`
	Numeric uint8    `json:"numeric,omitempty"`
	Members []Member `json:"members,omitempty"`
}

// Dataset holds the metadata and chunk index of one dataset.
type Dataset struct {
	ID          uint64   `json:"id"`
	Type        Type     `json:"type"`
	Dims        []uint64 `json:"dims"`
	MaxDims     []uint64 `json:"max_dims"`
	Chunks      []uint64 `json:"chunks"`
	Fill        []byte   `json:"fill,omitempty"`
	Compression string   `json:"compression"`
	Level       int      `json:"level,omitempty"`
	// Written maps a chunk key to the size of its stored frame.
	Written map[string]int64 `json:"written,omitempty"`
}

// Clone returns a deep copy of m.
func (m *Manifest) Clone() *Manifest {
	c := *m
	c.Objects = make(map[string]*Object, len(m.Objects))
	for p, o := range m.Objects {
		c.Objects[p] = o.clone()
	}
	return &c
}

func (o *Object) clone() *Object {
	c := &Object{Kind: o.Kind}
	if o.Attributes != nil {
		c.Attributes = make(map[string]Attribute, len(o.Attributes))
		for k, v := range o.Attributes {
			c.Attributes[k] = v
		}
	}
	if o.Dataset != nil {
		d := *o.Dataset
		d.Dims = append([]uint64(nil), d.Dims...)
		d.MaxDims = append([]uint64(nil), d.MaxDims...)
		d.Chunks = append([]uint64(nil), d.Chunks...)
		d.Fill = append([]byte(nil), d.Fill...)
		d.Type.Members = append([]Member(nil), d.Type.Members...)
		if o.Dataset.Written != nil {
			d.Written = make(map[string]int64, len(o.Dataset.Written))
			for k, v := range o.Dataset.Written {
				d.Written[k] = v
			}
		}
		c.Dataset = &d
	}
	return c
}

// Store manages manifest generations and the CURRENT pointer.
type Store struct {
	store blobstore.BlobStore
	codec codec.Codec
	mu    sync.Mutex
}

// NewStore creates a manifest store writing with c (codec.Default if nil).
func NewStore(store blobstore.BlobStore, c codec.Codec) *Store {
	if c == nil {
		c = codec.Default
	}
	return &Store{store: store, codec: c}
}

// FileName returns the blob name of manifest id written with codec c.
func FileName(id uint64, c codec.Codec) string {
	return fmt.Sprintf("%s%020d.%s", Dir, id, c.Name())
}

// ParseFileName extracts the id and codec name from a manifest blob name.
func ParseFileName(name string) (uint64, string, bool) {
	base := strings.TrimPrefix(name, Dir)
	if base == name {
		return 0, "", false
	}
	idPart, codecName, ok := strings.Cut(base, ".")
	if !ok {
		return 0, "", false
	}
	id, err := strconv.ParseUint(idPart, 10, 64)
	if err != nil {
		return 0, "", false
	}
	return id, codecName, true
}

// Load loads the current manifest.
func (s *Store) Load(ctx context.Context) (*Manifest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, err := blobstore.ReadAll(ctx, s.store, CurrentFileName)
	if err != nil {
		if errors.Is(err, blobstore.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return s.load(ctx, strings.TrimSpace(string(current)))
}

// LoadVersion loads a specific manifest id.
func (s *Store) LoadVersion(ctx context.Context, id uint64) (*Manifest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	names, err := s.store.List(ctx, Dir)
	if err != nil {
		return nil, err
	}
	for _, name := range names {
		if v, _, ok := ParseFileName(name); ok && v == id {
			return s.load(ctx, name)
		}
	}
	return nil, fmt.Errorf("%w: version %d", ErrNotFound, id)
}

func (s *Store) load(ctx context.Context, name string) (*Manifest, error) {
	_, codecName, ok := ParseFileName(name)
	if !ok {
		return nil, fmt.Errorf("manifest: invalid manifest name %q", name)
	}
	c, ok := codec.ByName(codecName)
	if !ok {
		return nil, fmt.Errorf("manifest: unknown codec %q", codecName)
	}

	data, err := blobstore.ReadAll(ctx, s.store, name)
	if err != nil {
		return nil, fmt.Errorf("manifest: open %s: %w", name, err)
	}

	m := &Manifest{}
	if err := c.Unmarshal(data, m); err != nil {
		return nil, fmt.Errorf("manifest: decode %s: %w", name, err)
	}
	if m.Version != CurrentVersion {
		return nil, fmt.Errorf("%w: %d", ErrIncompatibleVersion, m.Version)
	}
	if m.Objects == nil {
		m.Objects = map[string]*Object{"/": {Kind: KindGroup}}
	}
	return m, nil
}

// ListVersions returns the ids of all stored manifests in ascending order.
func (s *Store) ListVersions(ctx context.Context) ([]uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	names, err := s.store.List(ctx, Dir)
	if err != nil {
		return nil, err
	}
	ids := make([]uint64, 0, len(names))
	for _, name := range names {
		if id, _, ok := ParseFileName(name); ok {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

// Save increments m.ID and atomically commits m as the current manifest.
func (s *Store) Save(ctx context.Context, m *Manifest) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	m.Version = CurrentVersion
	m.ID++
	m.CreatedAt = time.Now()

	data, err := s.codec.Marshal(m)
	if err != nil {
		return fmt.Errorf("manifest: encode: %w", err)
	}

	name := FileName(m.ID, s.codec)
	if err := s.store.Put(ctx, name, data); err != nil {
		return err
	}
	return s.store.Put(ctx, CurrentFileName, []byte(name))
}

// DeleteVersion deletes the manifest blob for id.
func (s *Store) DeleteVersion(ctx context.Context, id uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	names, err := s.store.List(ctx, Dir)
	if err != nil {
		return err
	}
	for _, name := range names {
		if v, _, ok := ParseFileName(name); ok && v == id {
			return s.store.Delete(ctx, name)
		}
	}
	return nil
}

// ChunkKey formats chunk grid coordinates as a key.
func ChunkKey(coords ...uint64) string {
	parts := make([]string, len(coords))
	for i, c := range coords {
		parts[i] = strconv.FormatUint(c, 10)
	}
	return strings.Join(parts, "_")
}

// ChunkBlobName returns the blob name of a dataset chunk.
func ChunkBlobName(datasetID uint64, key string) string {
	return path.Join("chunks", strconv.FormatUint(datasetID, 10), key)
}
