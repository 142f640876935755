// kfd - inspect and maintain a driver's kernel function table
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple"

	"github.com/chazu/hearth/kfun"
	"github.com/chazu/hearth/kfun/crypt"
	"github.com/chazu/hearth/manifest"
	"github.com/chazu/hearth/snapstore"
)

var log = commonlog.GetLogger("hearth.kfd")

func main() {
	configDir := flag.String("C", ".", "Directory to search for hearth.toml")
	verbose := flag.Int("v", 0, "Extra log verbosity")
	output := flag.String("o", "", "Output file for protos (default stdout)")
	noColor := flag.Bool("no-color", false, "Disable colored output")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: kfd [options] <command>\n\n")
		fmt.Fprintf(os.Stderr, "Commands:\n")
		fmt.Fprintf(os.Stderr, "  ls          List stable index bindings\n")
		fmt.Fprintf(os.Stderr, "  checkpoint  Save the current numbering and prune old checkpoints\n")
		fmt.Fprintf(os.Stderr, "  reclaim     Compact the extension index space and checkpoint it\n")
		fmt.Fprintf(os.Stderr, "  history     List stored checkpoints\n")
		fmt.Fprintf(os.Stderr, "  protos      Write the JIT prototype manifest as CBOR\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	if *noColor {
		color.NoColor = true
	}

	m, err := manifest.FindAndLoad(*configDir)
	if err != nil {
		fatalf("Error loading configuration: %v", err)
	}
	if m == nil {
		m = manifest.Default(*configDir)
	}
	commonlog.Configure(m.Log.Verbosity+*verbose, nil)

	cmd := "ls"
	if flag.NArg() > 0 {
		cmd = flag.Arg(0)
	}

	ctx := context.Background()
	store, err := snapstore.Open(m.StorePath())
	if err != nil {
		fatalf("Error opening checkpoint store: %v", err)
	}
	defer store.Close()

	reg, err := start(ctx, m, store)
	if err != nil {
		fatalf("Error starting kfun table: %v", err)
	}

	switch cmd {
	case "ls":
		list(reg)
	case "checkpoint":
		checkpoint(ctx, m, store, reg)
	case "reclaim":
		n := reg.Reclaim()
		fmt.Printf("reclaimed %d stable indices\n", n)
		checkpoint(ctx, m, store, reg)
	case "history":
		history(ctx, store)
	case "protos":
		protos(reg, *output)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", cmd)
		flag.Usage()
		os.Exit(2)
	}
}

// buildTable registers the standard kfuns and the stock algorithms.
func buildTable(m *manifest.Manifest) (*kfun.Table, error) {
	b := kfun.NewBuilder(m.Layout(), kfun.StandardBuiltins()...)
	if err := b.Compiled(kfun.StandardCompiled()...); err != nil {
		return nil, err
	}
	if err := crypt.Register(b); err != nil {
		return nil, err
	}
	return b.Finalize()
}

// start numbers the table, resuming from the newest compatible checkpoint
// when there is one.
func start(ctx context.Context, m *manifest.Manifest, store *snapstore.Store) (*kfun.Registry, error) {
	t, err := buildTable(m)
	if err != nil {
		return nil, err
	}
	reg := kfun.NewRegistry(t)

	cp, err := store.Restore(ctx, m.Driver.Version, reg)
	switch {
	case errors.Is(err, snapstore.ErrNoCheckpoint):
		log.Infof("no checkpoint for driver %s, starting fresh", m.Driver.Version)
	case err != nil:
		return nil, err
	default:
		log.Infof("resumed from checkpoint %s", cp.ID)
	}

	if m.Snapshot.ReclaimOnStart {
		reg.Reclaim()
	}
	return reg, nil
}

func list(reg *kfun.Registry) {
	retired := color.New(color.FgYellow).SprintFunc()
	orphan := color.New(color.FgRed).SprintFunc()
	dim := color.New(color.Faint).SprintFunc()

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "INDEX\tSLOT\tKFUN\tPROTOTYPE")
	for _, b := range reg.Bindings() {
		name := b.Descriptor.String()
		switch {
		case b.Orphan:
			name = orphan(name + " (orphan)")
		case b.Descriptor.Retired:
			name = retired(name)
		}
		fmt.Fprintf(w, "%d\t%d\t%s\t%s\n", b.Index, b.Slot, name, dim(fmt.Sprintf("% x", b.Descriptor.Signature.Bytes())))
	}
	w.Flush()

	t := reg.Table()
	for _, c := range []kfun.Category{kfun.CategoryEncrypt, kfun.CategoryDecrypt, kfun.CategoryHash} {
		fmt.Printf("\n%s:", c)
		for _, d := range t.Category(c) {
			fmt.Printf(" %s", d.Name)
		}
	}
	fmt.Println()
}

func checkpoint(ctx context.Context, m *manifest.Manifest, store *snapstore.Store, reg *kfun.Registry) {
	cp, err := store.Save(ctx, m.Driver.Version, reg)
	if err != nil {
		fatalf("Error saving checkpoint: %v", err)
	}
	fmt.Printf("%s %s (%d kfuns)\n", color.GreenString("saved"), cp.ID, cp.Extensions)
	if _, err := store.Prune(ctx, m.Snapshot.KeepCount()); err != nil {
		fatalf("Error pruning checkpoints: %v", err)
	}
}

func history(ctx context.Context, store *snapstore.Store) {
	cps, err := store.List(ctx)
	if err != nil {
		fatalf("Error listing checkpoints: %v", err)
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tCREATED\tDRIVER\tKFUNS")
	for _, cp := range cps {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\n", cp.ID, cp.CreatedAt.Format("2006-01-02 15:04:05"), cp.DriverVersion, cp.Extensions)
	}
	w.Flush()
}

func protos(reg *kfun.Registry, output string) {
	data, err := kfun.MarshalManifest(reg.PrototypeManifest())
	if err != nil {
		fatalf("Error encoding prototypes: %v", err)
	}
	if output == "" {
		os.Stdout.Write(data)
		return
	}
	if err := os.WriteFile(output, data, 0644); err != nil {
		fatalf("Error writing %s: %v", output, err)
	}
	_, n := reg.Prototypes()
	fmt.Printf("wrote %d extension prototypes to %s\n", n, output)
}

func fatalf(format string, args ...interface{}) {
	log.Errorf(format, args...)
	fmt.Fprintln(os.Stderr, color.RedString(format, args...))
	os.Exit(1)
}
