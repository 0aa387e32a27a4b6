package service

import (
	"sift/internal/adapters/ingest/archive"
	perr "sift/internal/platform/errors"
	"sift/internal/services/categorize/domain"
)

// ArchiveOpener opens input files through the archive line reader configured by s
func ArchiveOpener(s domain.Settings) (domain.Opener, error) {
	codec, ok := archive.ParseCodec(s.Codec)
	if !ok {
		return nil, perr.InvalidArgf("unknown codec %q", s.Codec)
	}
	opts := []archive.Option{
		archive.WithChunkSize(s.ChunkSize),
		archive.WithMaxWindow(s.MaxWindow),
		archive.WithFlushTail(s.FlushTail),
	}
	if codec != "" {
		opts = append(opts, archive.WithCodec(codec))
	}
	return func(path string) (domain.LineSource, error) {
		rd, err := archive.Open(path, opts...)
		if err != nil {
			return nil, err
		}
		return rd, nil
	}, nil
}
