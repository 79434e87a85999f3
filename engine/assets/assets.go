package assets

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spaghettifunk/prism/engine/core"
)

type AssetType uint8

const (
	AssetTypeNone AssetType = iota
	AssetTypeImage
	AssetTypeShader
	AssetTypeBinary
)

func (t AssetType) String() string {
	switch t {
	case AssetTypeImage:
		return "image"
	case AssetTypeShader:
		return "shader"
	case AssetTypeBinary:
		return "binary"
	default:
		return "none"
	}
}

type AssetInfo struct {
	// Path relative to the asset root, with forward slashes.
	Path       string
	Type       AssetType
	LastLoaded time.Time
}

/**
 * @brief AssetManager indexes every known file under a root directory and
 * loads them through the loader registered for their type.
 *
 * When watching, the index follows the file system and onChange is called
 * from the watcher goroutine for every created or modified asset.
 */
type AssetManager struct {
	root    string
	assets  map[string]AssetInfo
	loaders map[AssetType]Loader

	mutex sync.RWMutex

	done     chan struct{}
	fsnotify *fsnotify.Watcher
	isClosed bool
	onChange func(AssetInfo)
}

func NewAssetManager(root string, watch bool, onChange func(AssetInfo)) (*AssetManager, error) {
	s, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("asset directory: %w", err)
	}
	if !s.IsDir() {
		return nil, fmt.Errorf("asset directory %s is not a directory", root)
	}

	am := &AssetManager{
		root:     root,
		assets:   make(map[string]AssetInfo),
		loaders:  make(map[AssetType]Loader),
		done:     make(chan struct{}),
		onChange: onChange,
	}

	// Register loaders
	am.RegisterLoader(AssetTypeImage, &ImageLoader{})
	am.RegisterLoader(AssetTypeShader, &BinaryLoader{})
	am.RegisterLoader(AssetTypeBinary, &BinaryLoader{})

	if watch {
		if am.fsnotify, err = fsnotify.NewWatcher(); err != nil {
			return nil, err
		}
		go am.start()
	}
	if err := am.watchRecursive(root); err != nil {
		am.Close()
		return nil, err
	}
	core.LogDebug("indexed %d assets under %s", len(am.assets), root)
	return am, nil
}

// RegisterLoader sets the loader used for every asset of the given type.
func (am *AssetManager) RegisterLoader(assetType AssetType, loader Loader) {
	am.mutex.Lock()
	defer am.mutex.Unlock()
	am.loaders[assetType] = loader
}

// Find lists the indexed assets of a type sorted by path.
func (am *AssetManager) Find(assetType AssetType) []AssetInfo {
	am.mutex.RLock()
	defer am.mutex.RUnlock()

	var out []AssetInfo
	for _, a := range am.assets {
		if a.Type == assetType {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}

// Load reads the asset at path, relative to the root, with its loader.
func (am *AssetManager) Load(path string) (any, error) {
	am.mutex.Lock()
	asset, exists := am.assets[path]
	if exists {
		// Update the loaded time
		asset.LastLoaded = time.Now()
		am.assets[path] = asset
	}
	loader, loaderExists := am.loaders[asset.Type]
	am.mutex.Unlock()

	if !exists {
		return nil, fmt.Errorf("asset not found: %s", path)
	}
	if !loaderExists {
		return nil, fmt.Errorf("no loader registered for asset type: %s", asset.Type)
	}
	return loader.Load(filepath.Join(am.root, filepath.FromSlash(path)))
}

// Close stops watching. The index stays usable.
func (am *AssetManager) Close() error {
	am.mutex.Lock()
	defer am.mutex.Unlock()
	if am.isClosed || am.fsnotify == nil {
		am.isClosed = true
		return nil
	}
	am.isClosed = true
	close(am.done)
	return nil
}

func (am *AssetManager) start() {
	for {
		select {
		case e, ok := <-am.fsnotify.Events:
			if !ok {
				return
			}
			s, err := os.Stat(e.Name)
			if err == nil && s != nil && s.IsDir() {
				if e.Op&fsnotify.Create != 0 {
					if err := am.watchRecursive(e.Name); err != nil {
						core.LogWarn("failed to watch %s: %s", e.Name, err)
					}
				}
				continue
			}
			// Handle create or modify events
			if e.Op&(fsnotify.Create|fsnotify.Write) != 0 {
				if info, ok := am.handleFileEvent(e.Name); ok && am.onChange != nil {
					am.onChange(info)
				}
			}
			// A removed path may have been a directory, it cannot be stat'ed
			// anymore.
			if e.Op&(fsnotify.Remove|fsnotify.Rename) != 0 {
				am.removeAsset(e.Name)
				_ = am.fsnotify.Remove(e.Name)
			}

		case err, ok := <-am.fsnotify.Errors:
			if !ok {
				return
			}
			core.LogError("asset watcher: %s", err)

		case <-am.done:
			am.fsnotify.Close()
			return
		}
	}
}

// watchRecursive indexes every file under path and, when watching, adds all
// directories to the watch list.
func (am *AssetManager) watchRecursive(path string) error {
	return filepath.WalkDir(path, func(walkPath string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if am.fsnotify == nil {
				return nil
			}
			return am.fsnotify.Add(walkPath)
		}
		am.handleFileEvent(walkPath)
		return nil
	})
}

func (am *AssetManager) relative(path string) (string, bool) {
	rel, err := filepath.Rel(am.root, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return "", false
	}
	return filepath.ToSlash(rel), true
}

// Handle the creation or modification of a file
func (am *AssetManager) handleFileEvent(path string) (AssetInfo, bool) {
	rel, ok := am.relative(path)
	if !ok {
		return AssetInfo{}, false
	}
	assetType := DetermineAssetType(rel)
	if assetType == AssetTypeNone {
		return AssetInfo{}, false
	}

	am.mutex.Lock()
	defer am.mutex.Unlock()
	info := am.assets[rel]
	info.Path = rel
	info.Type = assetType
	am.assets[rel] = info
	return info, true
}

// Remove the asset from the index if it was deleted
func (am *AssetManager) removeAsset(path string) {
	rel, ok := am.relative(path)
	if !ok {
		return
	}
	am.mutex.Lock()
	defer am.mutex.Unlock()
	delete(am.assets, rel)
}

func DetermineAssetType(path string) AssetType {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png", ".jpg", ".jpeg", ".bmp", ".tif", ".tiff":
		return AssetTypeImage
	case ".wgsl", ".vert", ".frag", ".glsl", ".spv":
		return AssetTypeShader
	case ".bin":
		return AssetTypeBinary
	default:
		return AssetTypeNone
	}
}

var ErrUnsupportedAsset = errors.New("unsupported asset")
