package ingest

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/sourcegraph/conc/pool"
	"github.com/spf13/afero"

	"github.com/franz/music-catalog/internal/report"
	"github.com/franz/music-catalog/internal/store"
	"github.com/franz/music-catalog/internal/util"
)

// AudioExtensions are the file extensions ReadDuration can measure
var AudioExtensions = []string{
	".mp3",
	".flac",
	".wav",
}

// Importer registers audio files in the catalog
type Importer struct {
	store       *store.Store
	fs          afero.Fs
	tags        TagReader
	duration    DurationFunc
	extensions  map[string]bool
	concurrency int
	logger      *report.EventLogger
	retry       *util.RetryConfig
	prune       bool
	progress    bool
}

// Config holds importer configuration
type Config struct {
	Store          *store.Store
	Fs             afero.Fs     // defaults to the OS filesystem
	Tags           TagReader    // defaults to DhowdenReader
	Duration       DurationFunc // defaults to ReadDuration
	AdditionalExts []string
	Concurrency    int
	Logger         *report.EventLogger
	Retry          *util.RetryConfig // stat retries for network shares (nil = default)

	// Prune deletes catalog songs below a walked directory whose files
	// no longer exist
	Prune bool

	// Progress draws a progress bar when stdout is a terminal
	Progress bool
}

// New creates a new Importer
func New(cfg *Config) *Importer {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 4
	}
	if cfg.Fs == nil {
		cfg.Fs = afero.NewOsFs()
	}
	if cfg.Tags == nil {
		cfg.Tags = DhowdenReader{}
	}
	if cfg.Duration == nil {
		cfg.Duration = ReadDuration
	}
	if cfg.Retry == nil {
		cfg.Retry = util.DefaultRetryConfig()
	}

	// Build extension map (case-insensitive)
	extMap := make(map[string]bool)
	for _, ext := range AudioExtensions {
		extMap[strings.ToLower(ext)] = true
	}
	for _, ext := range cfg.AdditionalExts {
		extMap[strings.ToLower(ext)] = true
	}

	return &Importer{
		store:       cfg.Store,
		fs:          cfg.Fs,
		tags:        cfg.Tags,
		duration:    cfg.Duration,
		extensions:  extMap,
		concurrency: cfg.Concurrency,
		logger:      cfg.Logger,
		retry:       cfg.Retry,
		prune:       cfg.Prune,
		progress:    cfg.Progress,
	}
}

// Result summarizes one import run
type Result struct {
	Found     int
	Created   int
	Updated   int
	Unchanged int
	Failed    int
	Pruned    *store.CascadeResult
	Errors    []error
}

// outcome of a single file
type outcome int

const (
	outcomeCreated outcome = iota
	outcomeUpdated
	outcomeUnchanged
)

// Import registers every audio file in paths. Directories are walked
// recursively; plain files are taken as given. Per-file failures are
// collected in Result.Errors and do not stop the run.
func (im *Importer) Import(ctx context.Context, paths []string) (*Result, error) {
	result := &Result{Pruned: &store.CascadeResult{}}

	files, dirs, err := im.collect(ctx, paths, result)
	if err != nil {
		return result, err
	}
	result.Found = len(files)
	util.InfoLog("Found %d audio files", len(files))

	var created, updated, unchanged, failed atomic.Int64
	var errMu sync.Mutex

	bar := im.newProgressBar(len(files))

	p := pool.New().WithMaxGoroutines(im.concurrency)
	for _, path := range files {
		p.Go(func() {
			if ctx.Err() != nil {
				return
			}

			out, err := im.importFile(path)
			if bar != nil {
				bar.Add(1)
			}
			if err != nil {
				failed.Add(1)
				util.ErrorLog("Failed to import %s: %v", path, err)
				errMu.Lock()
				result.Errors = append(result.Errors, fmt.Errorf("%s: %w", path, err))
				errMu.Unlock()
				return
			}

			switch out {
			case outcomeCreated:
				created.Add(1)
			case outcomeUpdated:
				updated.Add(1)
			default:
				unchanged.Add(1)
			}
		})
	}
	p.Wait()

	if bar != nil {
		bar.Finish()
	}

	result.Created = int(created.Load())
	result.Updated = int(updated.Load())
	result.Unchanged = int(unchanged.Load())
	result.Failed = int(failed.Load())

	if err := ctx.Err(); err != nil {
		return result, err
	}

	if im.prune {
		if err := im.pruneMissing(dirs, files, result); err != nil {
			return result, err
		}
	}

	util.SuccessLog("Import complete: %d new, %d updated, %d unchanged, %d failed",
		result.Created, result.Updated, result.Unchanged, result.Failed)

	return result, nil
}

// collect expands paths into a sorted, de-duplicated file list and the
// directories that were walked
func (im *Importer) collect(ctx context.Context, paths []string, result *Result) ([]string, []string, error) {
	seen := make(map[string]bool)
	var files, dirs []string

	add := func(path string) {
		if !seen[path] {
			seen[path] = true
			files = append(files, path)
		}
	}

	for _, root := range paths {
		root = filepath.Clean(root)

		info, err := im.fs.Stat(root)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Errorf("access error: %s: %w", root, err))
			continue
		}

		if !info.IsDir() {
			if !im.isAudioFile(root) {
				result.Errors = append(result.Errors, fmt.Errorf("%s: %w audio format", root, util.ErrUnsupported))
				continue
			}
			add(root)
			continue
		}

		dirs = append(dirs, root)
		walkErr := afero.Walk(im.fs, root, func(path string, info os.FileInfo, err error) error {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if err != nil {
				util.WarnLog("Error accessing path %s: %v", path, err)
				result.Errors = append(result.Errors, fmt.Errorf("access error: %s: %w", path, err))
				return nil // Continue walking
			}
			if info.IsDir() {
				return nil
			}
			if im.isAudioFile(path) {
				add(path)
			}
			return nil
		})
		if walkErr != nil {
			return nil, nil, fmt.Errorf("walk error: %w", walkErr)
		}
	}

	sort.Strings(files)
	return files, dirs, nil
}

// importFile registers one file, skipping it when the catalog already has
// the same size and modification time
func (im *Importer) importFile(path string) (outcome, error) {
	info, err := util.RetryableStat(im.fs, path, im.retry)
	if err != nil {
		return 0, fmt.Errorf("failed to stat: %w", err)
	}
	size := info.Size()
	mtime := info.ModTime().Unix()

	existing, err := im.store.GetSongByPath(path)
	switch {
	case err == nil:
		if existing.FileSize == size && existing.FileModified == mtime {
			util.DebugLog("Unchanged: %s", path)
			return outcomeUnchanged, nil
		}
	case !errors.Is(err, store.ErrNotFound):
		return 0, err
	}

	f, err := im.fs.Open(path)
	if err != nil {
		return 0, fmt.Errorf("failed to open: %w", err)
	}
	defer f.Close()

	tags, err := im.tags.ReadTags(f)
	if err != nil {
		util.WarnLog("Could not read tags of %s, using file name: %v", path, err)
		tags = &Tags{}
	}

	if _, err := f.Seek(0, 0); err != nil {
		return 0, fmt.Errorf("failed to rewind: %w", err)
	}
	duration, err := im.duration(f, strings.ToLower(filepath.Ext(path)), size)
	if err != nil {
		return 0, fmt.Errorf("failed to read duration: %w", err)
	}

	start := time.Now()
	song, created, err := im.store.ImportTrack(&store.TrackImport{
		Path:        path,
		Size:        size,
		Modified:    mtime,
		Title:       tags.Title,
		Artist:      tags.Artist,
		AlbumArtist: tags.AlbumArtist,
		Album:       tags.Album,
		Genre:       tags.Genre,
		Date:        tags.Date,
		TrackNumber: tags.TrackNumber,
		Duration:    duration,
		Picture:     tags.Picture,
	})
	im.logger.LogImport(path, songID(song), created, err)
	if err != nil {
		return 0, err
	}

	util.DebugLog("Imported %s as %s in %s", path, song.ID, time.Since(start))
	if created {
		return outcomeCreated, nil
	}
	return outcomeUpdated, nil
}

// pruneMissing deletes songs below each walked directory whose file was
// not found in this run and no longer exists. Each delete runs the full
// cascade.
func (im *Importer) pruneMissing(dirs, files []string, result *Result) error {
	present := make(map[string]bool, len(files))
	for _, f := range files {
		present[f] = true
	}

	for _, dir := range dirs {
		paths, err := im.store.SongPathsUnder(dir)
		if err != nil {
			return err
		}

		for _, path := range paths {
			if present[path] {
				continue
			}
			// Unreadable files are not missing files
			if _, err := util.RetryableStat(im.fs, path, im.retry); !errors.Is(err, os.ErrNotExist) {
				if err != nil {
					util.WarnLog("Not pruning %s: %v", path, err)
				}
				continue
			}

			start := time.Now()
			res, err := im.store.DeleteSongByPath(path)
			if errors.Is(err, store.ErrNotFound) {
				continue
			}
			if err != nil {
				return fmt.Errorf("failed to prune %s: %w", path, err)
			}
			util.InfoLog("Pruned %s (%s)", path, res)
			if len(res.Songs) > 0 {
				im.logger.LogDelete(store.KindSong, res.Songs[0], res, time.Since(start))
			}
			mergeResult(result.Pruned, res)
		}
	}

	return nil
}

func (im *Importer) newProgressBar(total int) *progressbar.ProgressBar {
	if !im.progress || total == 0 || util.IsQuiet() || !util.IsTerminal(os.Stdout.Fd()) {
		return nil
	}
	return progressbar.NewOptions(total,
		progressbar.OptionSetDescription("Importing"),
		progressbar.OptionSetWidth(min(40, util.GetTerminalWidth()/3)),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString("files"),
		progressbar.OptionThrottle(200*time.Millisecond),
		progressbar.OptionClearOnFinish(),
		progressbar.OptionSetRenderBlankState(true),
	)
}

// isAudioFile checks if a file has a supported audio extension
func (im *Importer) isAudioFile(path string) bool {
	return im.extensions[strings.ToLower(filepath.Ext(path))]
}

func songID(s *store.Song) string {
	if s == nil {
		return ""
	}
	return s.ID
}

func mergeResult(dst, src *store.CascadeResult) {
	dst.Songs = append(dst.Songs, src.Songs...)
	dst.Albums = append(dst.Albums, src.Albums...)
	dst.Artists = append(dst.Artists, src.Artists...)
	dst.Playlists = append(dst.Playlists, src.Playlists...)
	dst.Images = append(dst.Images, src.Images...)
	dst.Compacted = append(dst.Compacted, src.Compacted...)
}
