// pkg/descriptor/keys.go

package descriptor

import (
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

var keyFileName = regexp.MustCompile(`^id_(rsa|ed25519|ecdsa|dsa)$`)

// swapKeyAlgorithm replaces the algorithm in a path ending in id_<alg>.
func swapKeyAlgorithm(p, alg string) (string, bool) {
	i := strings.LastIndexAny(p, `/\`)
	if !keyFileName.MatchString(p[i+1:]) {
		return p, false
	}
	return p[:i+1] + "id_" + alg, true
}

// patchShortVolume handles "src:dst:ro" entries. Both ends must name a key file.
func patchShortVolume(value, alg string) (string, bool) {
	parts := strings.Split(value, ":")
	if len(parts) != 3 || !hasReadOnlyMode(parts[2]) {
		return value, false
	}
	src, okSrc := swapKeyAlgorithm(parts[0], alg)
	dst, okDst := swapKeyAlgorithm(parts[1], alg)
	if !okSrc || !okDst {
		return value, false
	}
	return src + ":" + dst + ":" + parts[2], true
}

func hasReadOnlyMode(mode string) bool {
	for _, m := range strings.Split(mode, ",") {
		if m == "ro" {
			return true
		}
	}
	return false
}

// longVolumeKeyNodes returns the source and target scalars of a long-syntax
// volume mapping that mounts a key file read-only.
func longVolumeKeyNodes(n *yaml.Node) (src, dst *yaml.Node, ok bool) {
	if n.Kind != yaml.MappingNode {
		return nil, nil, false
	}
	src, dst = mappingValue(n, "source"), mappingValue(n, "target")
	ro := mappingValue(n, "read_only")
	if src == nil || dst == nil || ro == nil || ro.Value != "true" {
		return nil, nil, false
	}
	if _, ok := swapKeyAlgorithm(src.Value, "rsa"); !ok {
		return nil, nil, false
	}
	if _, ok := swapKeyAlgorithm(dst.Value, "rsa"); !ok {
		return nil, nil, false
	}
	return src, dst, true
}

func mappingValue(n *yaml.Node, key string) *yaml.Node {
	for i := 0; i+1 < len(n.Content); i += 2 {
		if n.Content[i].Value == key {
			return n.Content[i+1]
		}
	}
	return nil
}
