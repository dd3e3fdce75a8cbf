// pkg/descriptor/patch.go

// Package descriptor rewrites the two operator-controlled fields of the
// remote-capture compose file: the ssh destination host and the algorithm of
// the mounted private key. Everything else in the file is left as written.
package descriptor

import (
	"bytes"
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/CodeMonkeyCybersecurity/shovel/pkg/shovel_err"
	cerr "github.com/cockroachdb/errors"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// ErrPatternNotFound means the descriptor does not contain a field to patch.
var ErrPatternNotFound = errors.New("pattern not found in descriptor")

// Changes lists the replacements to make. Empty fields are skipped.
type Changes struct {
	Host         string
	KeyAlgorithm string
}

// Result reports what a patch found.
type Result struct {
	HostMatches int
	KeyMatches  int
	Changed     bool
}

// PatchTargetHost sets the ssh destination host.
func PatchTargetHost(ctx context.Context, path, host string) (Result, error) {
	return Patch(ctx, path, Changes{Host: host})
}

// PatchKeyAlgorithm sets the algorithm of the mounted key file.
func PatchKeyAlgorithm(ctx context.Context, path, alg string) (Result, error) {
	return Patch(ctx, path, Changes{KeyAlgorithm: alg})
}

// Patch applies all changes or none. The file is rewritten through a
// temporary file and rename, and only when its content actually changes.
func Patch(ctx context.Context, path string, ch Changes) (Result, error) {
	logger := otelzap.Ctx(ctx)

	src, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Result{}, shovel_err.NewFilesystemError("descriptor not found: "+path, err,
				"Run shovel from the deployment directory or pass --root")
		}
		return Result{}, cerr.Wrapf(err, "read descriptor %s", path)
	}

	out, res, err := Apply(src, ch)
	if err != nil {
		return res, cerr.WithHint(cerr.Wrapf(err, "patch %s", filepath.Base(path)),
			"The remote capture service needs an `ssh user@host -oStrictHostKeyChecking=no ...` command "+
				"and a read-only `id_<algorithm>` key volume")
	}

	if !res.Changed {
		logger.Info("Descriptor already up to date", zap.String("path", path))
		return res, nil
	}

	perm := os.FileMode(0o644)
	if info, err := os.Stat(path); err == nil {
		perm = info.Mode().Perm()
	}
	if err := writeFileAtomic(path, out, perm); err != nil {
		return res, shovel_err.NewFilesystemError("could not write descriptor "+path, err)
	}

	logger.Info("Descriptor patched",
		zap.String("path", path),
		zap.String("host", ch.Host),
		zap.String("key_algorithm", ch.KeyAlgorithm),
		zap.Int("host_matches", res.HostMatches),
		zap.Int("key_matches", res.KeyMatches))
	return res, nil
}

// Apply computes the patched descriptor in memory. src is returned unchanged
// alongside any error.
func Apply(src []byte, ch Changes) ([]byte, Result, error) {
	var res Result
	var doc yaml.Node
	if err := yaml.Unmarshal(src, &doc); err != nil {
		return src, res, cerr.Wrap(err, "parse descriptor")
	}

	t := newTracker()

	if ch.Host != "" {
		dests := make(map[*yaml.Node]bool)
		walkArgv(&doc, func(seq *yaml.Node) {
			if dest := argvSSHDestination(seq); dest != nil {
				dests[dest] = true
				res.HostMatches++
				t.set(dest, replaceHost(dest.Value, ch.Host))
			}
		})
		walk(&doc, func(n *yaml.Node) {
			if n.Kind != yaml.ScalarNode || dests[n] {
				return
			}
			patched, matches := patchSSHHosts(n.Value, ch.Host)
			res.HostMatches += matches
			t.set(n, patched)
		})
		if res.HostMatches == 0 {
			return src, res, cerr.Wrap(ErrPatternNotFound, "no ssh command with StrictHostKeyChecking=no")
		}
	}

	if ch.KeyAlgorithm != "" {
		walkVolumes(&doc, func(item *yaml.Node) {
			if item.Kind == yaml.ScalarNode {
				if patched, ok := patchShortVolume(item.Value, ch.KeyAlgorithm); ok {
					res.KeyMatches++
					t.set(item, patched)
				}
				return
			}
			if srcNode, dstNode, ok := longVolumeKeyNodes(item); ok {
				res.KeyMatches++
				s, _ := swapKeyAlgorithm(srcNode.Value, ch.KeyAlgorithm)
				d, _ := swapKeyAlgorithm(dstNode.Value, ch.KeyAlgorithm)
				t.set(srcNode, s)
				t.set(dstNode, d)
			}
		})
		if res.KeyMatches == 0 {
			return src, res, cerr.Wrap(ErrPatternNotFound, "no read-only id_<algorithm> key volume")
		}
	}

	if len(t.order) == 0 {
		return src, res, nil
	}

	out, ok := splice(src, t)
	if !ok {
		var err error
		if out, err = encode(&doc); err != nil {
			return src, res, err
		}
	}
	res.Changed = !bytes.Equal(out, src)
	return out, res, nil
}

// tracker remembers the original value of every scalar it changes.
type tracker struct {
	orig  map[*yaml.Node]string
	order []*yaml.Node
}

func newTracker() *tracker {
	return &tracker{orig: make(map[*yaml.Node]string)}
}

func (t *tracker) set(n *yaml.Node, value string) {
	if n.Value == value {
		return
	}
	if _, seen := t.orig[n]; !seen {
		t.orig[n] = n.Value
		t.order = append(t.order, n)
	}
	n.Value = value
}

func walk(n *yaml.Node, fn func(*yaml.Node)) {
	fn(n)
	for _, c := range n.Content {
		walk(c, fn)
	}
}

// walkArgv visits every exec-form `command:` and `entrypoint:` sequence.
func walkArgv(n *yaml.Node, fn func(*yaml.Node)) {
	if n.Kind == yaml.MappingNode {
		for i := 0; i+1 < len(n.Content); i += 2 {
			k, v := n.Content[i], n.Content[i+1]
			if (k.Value == "command" || k.Value == "entrypoint") && v.Kind == yaml.SequenceNode {
				fn(v)
			}
		}
	}
	for _, c := range n.Content {
		walkArgv(c, fn)
	}
}

// walkVolumes visits the items of every `volumes:` sequence.
func walkVolumes(n *yaml.Node, fn func(*yaml.Node)) {
	if n.Kind == yaml.MappingNode {
		for i := 0; i+1 < len(n.Content); i += 2 {
			k, v := n.Content[i], n.Content[i+1]
			if k.Value == "volumes" && v.Kind == yaml.SequenceNode {
				for _, item := range v.Content {
					fn(item)
				}
			}
		}
	}
	for _, c := range n.Content {
		walkVolumes(c, fn)
	}
}

// splice rewrites changed scalars in place in the original bytes. It gives
// up, returning false, for any scalar it cannot locate verbatim.
func splice(src []byte, t *tracker) ([]byte, bool) {
	lineStarts := []int{0}
	for i, b := range src {
		if b == '\n' {
			lineStarts = append(lineStarts, i+1)
		}
	}

	edits := make([]textEdit, 0, len(t.order))
	for _, n := range t.order {
		old := t.orig[n]
		if strings.Contains(old, "\n") || n.Line < 1 || n.Line > len(lineStarts) {
			return nil, false
		}
		off, ok := columnOffset(src, lineStarts[n.Line-1], n.Column)
		if !ok {
			return nil, false
		}

		start := off
		switch n.Style &^ yaml.TaggedStyle {
		case 0:
		case yaml.DoubleQuotedStyle:
			if strings.ContainsAny(old, `"\`) || src[off] != '"' {
				return nil, false
			}
			start++
		case yaml.SingleQuotedStyle:
			if strings.Contains(old, "'") || src[off] != '\'' {
				return nil, false
			}
			start++
		default:
			return nil, false
		}

		end := start + len(old)
		if end > len(src) || string(src[start:end]) != old {
			return nil, false
		}
		edits = append(edits, textEdit{start: start, end: end, text: n.Value})
	}

	sort.Slice(edits, func(i, j int) bool { return edits[i].start < edits[j].start })
	for i := 1; i < len(edits); i++ {
		if edits[i].start < edits[i-1].end {
			return nil, false
		}
	}
	return []byte(applyEdits(string(src), edits)), true
}

// columnOffset converts a 1-based character column on a line to a byte offset.
func columnOffset(src []byte, lineStart, column int) (int, bool) {
	off := lineStart
	for c := 1; c < column; c++ {
		if off >= len(src) || src[off] == '\n' {
			return 0, false
		}
		_, size := utf8.DecodeRune(src[off:])
		off += size
	}
	return off, off < len(src)
}

func encode(doc *yaml.Node) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return nil, cerr.Wrap(err, "encode descriptor")
	}
	if err := enc.Close(); err != nil {
		return nil, cerr.Wrap(err, "encode descriptor")
	}
	return buf.Bytes(), nil
}

func writeFileAtomic(path string, data []byte, perm os.FileMode) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return cerr.Wrap(err, "create temp file")
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return cerr.Wrap(err, "write temp file")
	}
	if err := tmp.Chmod(perm); err != nil {
		_ = tmp.Close()
		return cerr.Wrap(err, "chmod temp file")
	}
	if err := tmp.Close(); err != nil {
		return cerr.Wrap(err, "close temp file")
	}
	return os.Rename(tmpName, path)
}
