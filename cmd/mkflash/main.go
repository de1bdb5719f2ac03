//go:build !tinygo

// Command mkflash builds a littlefs flash image from a host directory tree.
// The image is written through the relay proxy so the tool exercises the same
// block path the firmware uses.
package main

import (
	"flag"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/cespare/xxhash/v2"
	"tinygo.org/x/tinyfs/littlefs"

	"flashrelay/hal"
	"flashrelay/internal/buildinfo"
	"flashrelay/relay"
)

func main() {
	defaults, err := hal.LoadHostFlashConfig()
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(2)
	}

	var (
		srcDir    string
		outPath   string
		flashSize uint
		eraseSize uint
		verify    bool
		version   bool
	)
	flag.StringVar(&srcDir, "src", "", "Source directory to import into the image.")
	flag.StringVar(&outPath, "out", defaults.Path, "Output flash image path.")
	flag.UintVar(&flashSize, "size", uint(defaults.SizeBytes), "Flash image size (bytes).")
	flag.UintVar(&eraseSize, "erase", uint(defaults.EraseBlockBytes), "Erase block size (bytes).")
	flag.BoolVar(&verify, "verify", false, "Re-read every file after unmount and compare digests.")
	flag.BoolVar(&version, "version", false, "Print version and exit.")
	flag.Parse()

	if version {
		fmt.Printf("mkflash %s (%s, %s)\n", buildinfo.Short(), buildinfo.Commit, buildinfo.Date)
		return
	}

	if srcDir == "" {
		fmt.Fprintln(os.Stderr, "error: -src is required")
		os.Exit(2)
	}
	if outPath == "" {
		fmt.Fprintln(os.Stderr, "error: -out is required")
		os.Exit(2)
	}

	if err := run(srcDir, outPath, uint32(flashSize), uint32(eraseSize), verify); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run(srcDir, outPath string, flashSize, eraseSize uint32, verify bool) error {
	srcDir = filepath.Clean(srcDir)
	st, err := os.Stat(srcDir)
	if err != nil {
		return fmt.Errorf("stat src %q: %w", srcDir, err)
	}
	if !st.IsDir() {
		return fmt.Errorf("src %q is not a directory", srcDir)
	}

	hf, err := hal.CreateHostFlash(hal.HostFlashConfig{
		Path:            outPath,
		SizeBytes:       flashSize,
		EraseBlockBytes: eraseSize,
	})
	if err != nil {
		return err
	}
	defer func() { _ = hf.Close() }()

	proxy := relay.New(relay.Options{Logger: hal.NewHostLogger()})
	proxy.Start()

	bd, err := relay.NewBlockDevice(proxy, relay.Config{
		BlockSize: eraseSize,
		Target:    hf,
	})
	if err != nil {
		return err
	}

	lfs := littlefs.New(bd).Configure(&littlefs.Config{
		CacheSize:     512,
		LookaheadSize: 512,
		BlockCycles:   100,
	})

	if err := lfs.Format(); err != nil {
		return fmt.Errorf("format image: %w", err)
	}
	if err := lfs.Mount(); err != nil {
		return fmt.Errorf("mount image: %w", err)
	}

	dirs, files, err := collect(srcDir)
	if err != nil {
		return err
	}

	for _, d := range dirs {
		if err := lfs.Mkdir(d, 0o755); err != nil {
			return fmt.Errorf("mkdir %q: %w", d, err)
		}
	}

	digests := make(map[string]uint64, len(files))
	for _, path := range files {
		hostPath := filepath.Join(srcDir, filepath.FromSlash(strings.TrimPrefix(path, "/")))
		sum, err := copyFile(lfs, hostPath, path)
		if err != nil {
			return err
		}
		digests[path] = sum
	}

	if err := lfs.Unmount(); err != nil {
		return fmt.Errorf("unmount image: %w", err)
	}

	if verify {
		if err := verifyImage(lfs, files, digests); err != nil {
			return err
		}
	}

	fmt.Printf("wrote %s: %d dirs, %d files\n", outPath, len(dirs), len(files))
	return nil
}

// collect walks the source tree and returns image paths for directories and
// regular files, each sorted so parents precede children.
func collect(srcDir string) (dirs, files []string, err error) {
	walkErr := filepath.WalkDir(srcDir, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if path == srcDir {
			return nil
		}
		if entry.Type()&os.ModeSymlink != 0 {
			return nil
		}
		rel, err := filepath.Rel(srcDir, path)
		if err != nil {
			return err
		}
		imgPath := "/" + filepath.ToSlash(rel)
		if entry.IsDir() {
			dirs = append(dirs, imgPath)
			return nil
		}
		if !entry.Type().IsRegular() {
			return nil
		}
		files = append(files, imgPath)
		return nil
	})
	if walkErr != nil {
		return nil, nil, fmt.Errorf("walk src %q: %w", srcDir, walkErr)
	}
	sort.Strings(dirs)
	sort.Strings(files)
	return dirs, files, nil
}

func copyFile(lfs *littlefs.LFS, hostPath, imgPath string) (uint64, error) {
	in, err := os.Open(hostPath)
	if err != nil {
		return 0, fmt.Errorf("open %q: %w", hostPath, err)
	}
	defer func() { _ = in.Close() }()

	out, err := lfs.OpenFile(imgPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC)
	if err != nil {
		return 0, fmt.Errorf("create %q: %w", imgPath, err)
	}

	digest := xxhash.New()
	if _, err := io.Copy(io.MultiWriter(out, digest), in); err != nil {
		_ = out.Close()
		return 0, fmt.Errorf("copy %q: %w", imgPath, err)
	}
	if err := out.Close(); err != nil {
		return 0, fmt.Errorf("close %q: %w", imgPath, err)
	}
	return digest.Sum64(), nil
}

// verifyImage remounts the image and re-reads every file, comparing digests
// against what was written.
func verifyImage(lfs *littlefs.LFS, files []string, digests map[string]uint64) error {
	if err := lfs.Mount(); err != nil {
		return fmt.Errorf("verify mount: %w", err)
	}
	defer func() { _ = lfs.Unmount() }()

	for _, path := range files {
		f, err := lfs.OpenFile(path, os.O_RDONLY)
		if err != nil {
			return fmt.Errorf("verify open %q: %w", path, err)
		}
		digest := xxhash.New()
		_, err = io.Copy(digest, f)
		if cerr := f.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			return fmt.Errorf("verify read %q: %w", path, err)
		}
		if digest.Sum64() != digests[path] {
			return fmt.Errorf("verify %q: digest mismatch", path)
		}
	}
	return nil
}
