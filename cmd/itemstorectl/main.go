// itemstorectl inspects an item store directory. It never writes to
// the directory itself but, like every process sharing the store, it
// takes the lock file .<dir>.lock next to it (creating it if needed).
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/kjk/itemstore/itemstore"
	"github.com/kjk/itemstore/log"
	"github.com/kjk/itemstore/u"
)

func usage() {
	fmt.Fprintf(os.Stderr, "Usage: itemstorectl [options] <command> [args]\n\n")
	fmt.Fprintf(os.Stderr, "Commands:\n")
	fmt.Fprintf(os.Stderr, "  info          show number and size of records\n")
	fmt.Fprintf(os.Stderr, "  ls [n]        list ids of the first n records (all if n is not given)\n")
	fmt.Fprintf(os.Stderr, "  get <id>      write content of a record to stdout\n")
	fmt.Fprintf(os.Stderr, "  verify        decode all records, exit with 1 if any fails\n\n")
	fmt.Fprintf(os.Stderr, "Records are not modified. The lock file .<dir>.lock is created next to\n")
	fmt.Fprintf(os.Stderr, "the store directory, the same one other processes of the store use.\n\n")
	fmt.Fprintf(os.Stderr, "Options:\n")
	flag.PrintDefaults()
}

func main() {
	var (
		flgConfig  string
		flgDir     string
		flgCodec   string
		flgWorkers int
		flgVerbose bool
	)
	flag.StringVar(&flgConfig, "config", "", "path to YAML config file")
	flag.StringVar(&flgDir, "dir", "", "store directory")
	flag.StringVar(&flgCodec, "codec", "", "codec of record files: raw, zstd or brotli")
	flag.IntVar(&flgWorkers, "workers", 0, "number of parallel decoders, 0 for number of CPUs")
	flag.BoolVar(&flgVerbose, "verbose", false, "verbose logging")
	flag.Usage = usage
	flag.Parse()

	cfg := &Config{}
	if flgConfig != "" {
		var err error
		cfg, err = loadConfig(flgConfig)
		exitIfErr(err)
	}
	if flgDir != "" {
		cfg.Dir = flgDir
	}
	if flgCodec != "" {
		cfg.Codec = flgCodec
	}
	if flgWorkers > 0 {
		cfg.Workers = flgWorkers
	}
	exitIfErr(cfg.validate())

	// stdout is for command output
	log.Output = os.Stderr
	log.Verbose = flgVerbose
	exitIfErr(log.Init(&log.Config{Dir: cfg.LogDir}))
	defer log.Close()

	args := flag.Args()
	if len(args) == 0 {
		usage()
		os.Exit(2)
	}
	store, err := openStore(cfg)
	exitIfErr(err)

	switch args[0] {
	case "info":
		err = cmdInfo(os.Stdout, store)
	case "ls":
		n := 0
		if len(args) > 1 {
			_, err = fmt.Sscanf(args[1], "%d", &n)
			exitIfErr(err)
		}
		err = cmdList(os.Stdout, store, n)
	case "get":
		if len(args) < 2 {
			usage()
			os.Exit(2)
		}
		err = cmdGet(os.Stdout, store, args[1])
	case "verify":
		err = cmdVerify(os.Stdout, store)
	default:
		fmt.Fprintf(os.Stderr, "unknown command '%s'\n\n", args[0])
		usage()
		os.Exit(2)
	}
	log.Close()
	exitIfErr(err)
}

func exitIfErr(err error) {
	if err == nil {
		return
	}
	fmt.Fprintf(os.Stderr, "error: %s\n", err)
	os.Exit(1)
}

func openStore(cfg *Config) (*itemstore.Store[*itemstore.Raw], error) {
	c, err := newCodec(cfg.Codec)
	if err != nil {
		return nil, err
	}
	return itemstore.New(itemstore.Options[*itemstore.Raw]{
		Dir:     cfg.Dir,
		Codec:   c,
		Workers: cfg.Workers,
	})
}

func cmdInfo(w io.Writer, store *itemstore.Store[*itemstore.Raw]) error {
	timeStart := time.Now()
	rep, err := store.Load(0)
	if err != nil {
		return err
	}
	dur := time.Since(timeStart)
	if rep.Fresh {
		fmt.Fprintf(w, "'%s' doesn't exist\n", store.Dir())
		return nil
	}
	var size int64
	for _, r := range store.Items().All() {
		size += int64(len(r.Data))
	}
	fmt.Fprintf(w, "dir:     %s\n", store.Dir())
	fmt.Fprintf(w, "records: %d\n", rep.Total)
	fmt.Fprintf(w, "loaded:  %d\n", rep.Loaded)
	fmt.Fprintf(w, "dropped: %d (%.1f%%)\n", rep.Dropped, u.Percent(int64(rep.Total), int64(rep.Dropped)))
	fmt.Fprintf(w, "size:    %s\n", u.FormatSize(size))
	fmt.Fprintf(w, "load:    %s\n", u.FormatDuration(dur))
	return nil
}

func cmdList(w io.Writer, store *itemstore.Store[*itemstore.Raw], n int) error {
	visit := func(r *itemstore.Raw) bool {
		fmt.Fprintf(w, "%s %s\n", r.ID, u.FormatSize(int64(len(r.Data))))
		return true
	}
	if n <= 0 {
		return store.Iterate(visit)
	}
	recs, err := store.Prefix(n)
	if err != nil {
		return err
	}
	for _, r := range recs {
		visit(r)
	}
	return nil
}

func cmdGet(w io.Writer, store *itemstore.Store[*itemstore.Raw], s string) error {
	// accept a path to a record file too
	id, err := uuid.Parse(filepath.Base(s))
	if err != nil {
		return fmt.Errorf("'%s' is not a valid record id", s)
	}
	r, ok := store.Locate(id)
	if !ok {
		return fmt.Errorf("record %s not found", id)
	}
	_, err = w.Write(r.Data)
	return err
}

func cmdVerify(w io.Writer, store *itemstore.Store[*itemstore.Raw]) error {
	rep, err := store.Load(0)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "%d of %d records ok\n", rep.Loaded, rep.Total)
	if rep.Dropped > 0 {
		return fmt.Errorf("%d records failed to decode", rep.Dropped)
	}
	return nil
}
