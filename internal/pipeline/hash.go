package pipeline

import (
	"encoding/hex"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"syscall"

	"github.com/zeebo/blake3"

	"github.com/chariotdev/chariot/internal/recipe"
)

// currentHash computes the structural hash of r: a canonical serialization
// of the recipe, plus a 3-char modifier string and namespace/name per
// outgoing dep, plus — only for a local source — the latest ctime under the
// source tree.
func (p *Pipeline) currentHash(r *recipe.Recipe) (string, error) {
	h := blake3.New()

	writeCanonicalRecipe(h, r)

	for _, dep := range p.opts.Config.DependencyMap[r.ID] {
		target := p.opts.Config.Recipe(dep.To)
		fmt.Fprintf(h, "%s%s/%s\n", dep.Modifiers(), target.Namespace, target.Name)
	}

	if r.Namespace == recipe.Source && r.Source != nil && r.Source.Kind == recipe.Local {
		secs, nsecs, err := latestCtime(r.Source.URL)
		if err != nil {
			return "", err
		}
		fmt.Fprintf(h, "ctime:%d:%d\n", secs, nsecs)
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}

// writeCanonicalRecipe writes a deterministic encoding of r's own fields
// (excluding dependency edges, written separately by the caller) to h.
func writeCanonicalRecipe(h *blake3.Hasher, r *recipe.Recipe) {
	fmt.Fprintf(h, "ns:%s\nname:%s\nclean:%t\n", r.Namespace, r.Name, r.AlwaysClean)

	if r.Source != nil {
		s := r.Source
		fmt.Fprintf(h, "src:%s\nurl:%s\nrev:%s\nb2:%s\npatch:%s\n", s.Kind, s.URL, s.Revision, s.B2Sum, s.Patch)
		writeCodeBlock(h, "regen", s.Regenerate)
	}

	writeCodeBlock(h, "configure", r.Stages.Configure)
	writeCodeBlock(h, "build", r.Stages.Build)
	writeCodeBlock(h, "install", r.Stages.Install)

	imgDeps := append([]recipe.ImageDependency(nil), r.ImageDependencies...)
	sort.Slice(imgDeps, func(i, j int) bool { return imgDeps[i].Name < imgDeps[j].Name })
	for _, d := range imgDeps {
		fmt.Fprintf(h, "img:%s:%t\n", d.Name, d.Runtime)
	}

	opts := append([]string(nil), r.UsedOptions...)
	sort.Strings(opts)
	for _, o := range opts {
		fmt.Fprintf(h, "opt:%s\n", o)
	}
}

func writeCodeBlock(h *blake3.Hasher, label string, cb *recipe.CodeBlock) {
	if cb == nil {
		fmt.Fprintf(h, "%s:\n", label)
		return
	}
	fmt.Fprintf(h, "%s:%s:%s\n", label, cb.Lang, cb.Code)
}

// latestCtime walks root and returns the newest ctime seen, as (secs, nsecs),
// read from the Linux syscall.Stat_t; an entry whose stat result carries no
// ctime contributes its modification time instead.
func latestCtime(root string) (int64, int64, error) {
	var secs, nsecs int64
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		mt := info.ModTime()
		cs, cns := mt.Unix(), int64(mt.Nanosecond())
		if st, ok := info.Sys().(*syscall.Stat_t); ok {
			cs, cns = int64(st.Ctim.Sec), int64(st.Ctim.Nsec)
		}
		if cs > secs || (cs == secs && cns > nsecs) {
			secs, nsecs = cs, cns
		}
		return nil
	})
	if err != nil && !os.IsNotExist(err) {
		return 0, 0, err
	}
	return secs, nsecs, nil
}
