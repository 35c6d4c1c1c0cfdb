package core

import (
	"encoding/hex"
	"sort"
	"strings"

	debversion "github.com/knqyf263/go-deb-version"
	"lukechampine.com/blake3"

	"cascade-builds/internal/types"
)

// PlanFingerprint hashes the rendered plan lines so two runs can be compared
// at a glance. Order is significant.
func PlanFingerprint(lines []string) string {
	hash := blake3.Sum256([]byte(strings.Join(lines, "\n")))
	return hex.EncodeToString(hash[:16])
}

// SortReleaseBranches orders primary branches with the default branch first
// and the remaining release lines newest first. Branch names that are not
// version-like fall back to lexical order.
func SortReleaseBranches(branches []types.Branch, defaultBranch types.Branch) []types.Branch {
	out := append([]types.Branch(nil), branches...)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i] == defaultBranch || out[j] == defaultBranch {
			return out[i] == defaultBranch && out[j] != defaultBranch
		}
		vi, err := debversion.NewVersion(releaseVersion(out[i]))
		if err != nil {
			return out[i] < out[j]
		}
		vj, err := debversion.NewVersion(releaseVersion(out[j]))
		if err != nil {
			return out[i] < out[j]
		}
		return vi.Compare(vj) > 0
	})
	return out
}

// releaseVersion turns "7.4.x" into "7.4" so it parses as a version.
func releaseVersion(branch types.Branch) string {
	return strings.TrimSuffix(strings.TrimSpace(string(branch)), ".x")
}
