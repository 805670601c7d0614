package store

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/hupe1980/kea/internal/filter"
	"github.com/hupe1980/kea/internal/manifest"
	"golang.org/x/sync/errgroup"
)

const defaultFlushWorkers = 8

type flushJob struct {
	id          chunkID
	key         string
	name        string
	payload     []byte
	compression filter.Compression
	level       int
	size        int64
}

// Flush encodes every dirty chunk, uploads the chunk blobs in parallel and
// commits a new manifest. Chunk blobs of unlinked datasets and the previous
// manifest are deleted once the commit succeeded.
func (f *File) Flush(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.checkWritable(); err != nil {
		return err
	}
	return f.flushLocked(ctx)
}

func (f *File) flushLocked(ctx context.Context) error {
	if !f.changed && len(f.dirty) == 0 {
		return nil
	}
	start := time.Now()

	jobs := make([]*flushJob, 0, len(f.dirty))
	datasets := make(map[uint64]*manifest.Dataset)
	for _, obj := range f.m.Objects {
		if obj.Dataset != nil {
			datasets[obj.Dataset.ID] = obj.Dataset
		}
	}
	for id, c := range f.dirty {
		ds, ok := datasets[id.dataset]
		if !ok {
			continue
		}
		compression, err := filter.ParseCompression(ds.Compression)
		if err != nil {
			return err
		}
		l := layoutOf(ds)
		key := l.key(id)
		jobs = append(jobs, &flushJob{
			id:          id,
			key:         key,
			name:        manifest.ChunkBlobName(ds.ID, key),
			payload:     c.payload(datatypeFromManifest(ds.Type)),
			compression: compression,
			level:       ds.Level,
		})
	}
	sort.Slice(jobs, func(i, j int) bool { return jobs[i].name < jobs[j].name })

	workers := defaultFlushWorkers
	if f.opts.rc != nil {
		workers = f.opts.rc.Workers()
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, workers))
	for _, job := range jobs {
		g.Go(func() error {
			if err := f.opts.rc.AcquireBackground(gctx); err != nil {
				return err
			}
			defer f.opts.rc.ReleaseBackground()

			frame, err := filter.Encode(job.payload, job.compression, job.level)
			if err != nil {
				return fmt.Errorf("store: encode chunk %s: %w", job.name, err)
			}
			if err := f.opts.rc.AcquireIO(gctx, len(frame)); err != nil {
				return err
			}
			if err := f.bs.Put(gctx, job.name, frame); err != nil {
				return fmt.Errorf("store: write chunk %s: %w", job.name, err)
			}
			job.size = int64(len(frame))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	prev := f.m.ID
	next := f.m.Clone()
	for _, obj := range next.Objects {
		ds := obj.Dataset
		if ds == nil {
			continue
		}
		for _, job := range jobs {
			if job.id.dataset != ds.ID {
				continue
			}
			if ds.Written == nil {
				ds.Written = make(map[string]int64)
			}
			ds.Written[job.key] = job.size
		}
	}
	if err := f.manifests.Save(ctx, next); err != nil {
		return fmt.Errorf("store: commit manifest: %w", err)
	}
	f.m = next

	var bytes int64
	for _, job := range jobs {
		f.cache.Set(ctx, cacheKeyOf(job.id), job.payload)
		bytes += job.size
	}
	f.dirty = make(map[chunkID]*chunk)

	for _, name := range f.garbage {
		if err := f.bs.Delete(ctx, name); err != nil {
			f.logger.WarnContext(ctx, "chunk cleanup failed", "blob", name, "error", err)
		}
	}
	f.garbage = nil
	if prev > 0 {
		if err := f.manifests.DeleteVersion(ctx, prev); err != nil {
			f.logger.WarnContext(ctx, "manifest cleanup failed", "generation", prev, "error", err)
		}
	}
	f.changed = false

	f.logger.DebugContext(ctx, "container flushed",
		"generation", f.m.ID,
		"chunks", len(jobs),
		"bytes", bytes,
		"duration", time.Since(start),
	)
	return nil
}
