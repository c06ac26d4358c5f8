package resolver

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/standardbeagle/cmi/internal/store"
)

func newTestResolver(vars map[string]string) (*Resolver, *store.VariableStore) {
	s := store.New([]string{"/ws"})
	for name, value := range vars {
		s.Set(name, value)
	}
	return New(s), s
}

func TestResolvePathKnownVariable(t *testing.T) {
	r, _ := newTestResolver(map[string]string{"X": "/a/b"})

	rp := r.ResolvePath("${X}/c", 0)
	if rp.Resolved != "/a/b/c" {
		t.Errorf("Resolved = %q, want %q", rp.Resolved, "/a/b/c")
	}
	if rp.Original != "${X}/c" {
		t.Errorf("Original = %q, want %q", rp.Original, "${X}/c")
	}
	if len(rp.UnresolvedVariables) != 0 {
		t.Errorf("UnresolvedVariables = %v, want empty", rp.UnresolvedVariables)
	}
}

func TestResolvePathUnknownVariable(t *testing.T) {
	r, _ := newTestResolver(nil)

	rp := r.ResolvePath("${Y}/include", 0)
	if rp.Resolved != "${Y}/include" {
		t.Errorf("Resolved = %q, want literal token preserved", rp.Resolved)
	}
	if len(rp.UnresolvedVariables) != 1 || rp.UnresolvedVariables[0] != "Y" {
		t.Errorf("UnresolvedVariables = %v, want [Y]", rp.UnresolvedVariables)
	}
}

func TestResolvePathChained(t *testing.T) {
	r, _ := newTestResolver(map[string]string{
		"A": "${B}",
		"B": "/x",
	})

	rp := r.ResolvePath("${A}/lib", 0)
	if rp.Resolved != "/x/lib" {
		t.Errorf("Resolved = %q, want %q", rp.Resolved, "/x/lib")
	}
	if len(rp.UnresolvedVariables) != 0 {
		t.Errorf("UnresolvedVariables = %v, want empty", rp.UnresolvedVariables)
	}
}

func TestResolvePathDeepChain(t *testing.T) {
	// Nine passes fit inside the default depth budget of ten.
	vars := map[string]string{"V8": "/leaf"}
	for i := 0; i < 8; i++ {
		vars["V"+string(rune('0'+i))] = "${V" + string(rune('1'+i)) + "}"
	}
	r, _ := newTestResolver(vars)

	rp := r.ResolvePath("${V0}", 0)
	if rp.Resolved != "/leaf" {
		t.Errorf("Resolved = %q, want %q", rp.Resolved, "/leaf")
	}
}

func TestResolvePathCycleTerminates(t *testing.T) {
	r, _ := newTestResolver(map[string]string{
		"A": "${B}",
		"B": "${A}",
	})

	rp := r.ResolvePath("${A}", 0)
	if !strings.Contains(rp.Resolved, "${") {
		t.Errorf("Resolved = %q, want a literal token left by depth exhaustion", rp.Resolved)
	}
	// Both names are defined, so neither is unresolved. The cycle shows up
	// only as a leftover token in the output.
	for _, name := range rp.UnresolvedVariables {
		if name == "A" || name == "B" {
			t.Errorf("UnresolvedVariables contains defined name %q", name)
		}
	}
}

func TestResolvePathSelfCycle(t *testing.T) {
	r, _ := newTestResolver(map[string]string{"LOOP": "${LOOP}/x"})

	rp := r.ResolvePath("${LOOP}", 3)
	if !strings.Contains(rp.Resolved, "${LOOP}") {
		t.Errorf("Resolved = %q, want ${LOOP} still present", rp.Resolved)
	}
	if !strings.HasSuffix(rp.Resolved, "/x/x/x") {
		t.Errorf("Resolved = %q, want three expansion passes applied", rp.Resolved)
	}
}

func TestResolvePathLiteralIdempotent(t *testing.T) {
	r, _ := newTestResolver(map[string]string{"X": "/a"})

	for _, expr := range []string{"/usr/local/include", "rel/path/file.txt", ""} {
		rp := r.ResolvePath(expr, 0)
		if rp.Resolved != expr {
			t.Errorf("ResolvePath(%q).Resolved = %q, want unchanged", expr, rp.Resolved)
		}
		if len(rp.UnresolvedVariables) != 0 {
			t.Errorf("ResolvePath(%q).UnresolvedVariables = %v, want empty", expr, rp.UnresolvedVariables)
		}
	}
}

func TestResolvePathNormalizesSeparators(t *testing.T) {
	r, _ := newTestResolver(map[string]string{"WIN": `C:\Users\dev`})

	rp := r.ResolvePath(`${WIN}\proj`, 0)
	if rp.Resolved != "C:/Users/dev/proj" {
		t.Errorf("Resolved = %q, want %q", rp.Resolved, "C:/Users/dev/proj")
	}
	if strings.Contains(rp.Resolved, `\`) {
		t.Errorf("Resolved = %q, want no backslashes", rp.Resolved)
	}
}

func TestResolvePathEnvOverride(t *testing.T) {
	r, s := newTestResolver(nil)
	s.SetEnvOverride("TEST_ENV_PATH", "/env/value")

	rp := r.ResolvePath("$ENV{TEST_ENV_PATH}/bin", 0)
	if rp.Resolved != "/env/value/bin" {
		t.Errorf("Resolved = %q, want %q", rp.Resolved, "/env/value/bin")
	}
	if len(rp.UnresolvedVariables) != 0 {
		t.Errorf("UnresolvedVariables = %v, want empty", rp.UnresolvedVariables)
	}
}

func TestResolvePathEnvUnset(t *testing.T) {
	r, _ := newTestResolver(nil)

	rp := r.ResolvePath("$ENV{CMI_DEFINITELY_NOT_SET_12345}/bin", 0)
	if rp.Resolved != "$ENV{CMI_DEFINITELY_NOT_SET_12345}/bin" {
		t.Errorf("Resolved = %q, want literal token preserved", rp.Resolved)
	}
	want := "ENV{CMI_DEFINITELY_NOT_SET_12345}"
	if len(rp.UnresolvedVariables) != 1 || rp.UnresolvedVariables[0] != want {
		t.Errorf("UnresolvedVariables = %v, want [%s]", rp.UnresolvedVariables, want)
	}
}

func TestResolvePathEnvNamespaceDistinct(t *testing.T) {
	// A store variable must not satisfy $ENV{NAME} and an environment
	// value must not satisfy ${NAME}.
	r, s := newTestResolver(map[string]string{"CMI_VAR_SIDE": "/var/side"})
	s.SetEnvOverride("CMI_ENV_SIDE", "/env/side")

	rp := r.ResolvePath("$ENV{CMI_VAR_SIDE}:${CMI_ENV_SIDE}", 0)
	if !strings.Contains(rp.Resolved, "$ENV{CMI_VAR_SIDE}") {
		t.Errorf("Resolved = %q, want env reference unresolved", rp.Resolved)
	}
	if !strings.Contains(rp.Resolved, "${CMI_ENV_SIDE}") {
		t.Errorf("Resolved = %q, want variable reference unresolved", rp.Resolved)
	}
	wantUnresolved := []string{"ENV{CMI_VAR_SIDE}", "CMI_ENV_SIDE"}
	if len(rp.UnresolvedVariables) != len(wantUnresolved) {
		t.Fatalf("UnresolvedVariables = %v, want %v", rp.UnresolvedVariables, wantUnresolved)
	}
	for i, want := range wantUnresolved {
		if rp.UnresolvedVariables[i] != want {
			t.Errorf("UnresolvedVariables[%d] = %q, want %q", i, rp.UnresolvedVariables[i], want)
		}
	}
}

func TestResolvePathMixedEnvAndVars(t *testing.T) {
	r, s := newTestResolver(map[string]string{"SUB": "include"})
	s.SetEnvOverride("ROOT", "/opt/sdk")

	rp := r.ResolvePath("$ENV{ROOT}/${SUB}/v1", 0)
	if rp.Resolved != "/opt/sdk/include/v1" {
		t.Errorf("Resolved = %q, want %q", rp.Resolved, "/opt/sdk/include/v1")
	}
}

func TestResolvePathUnresolvedRecordedOnce(t *testing.T) {
	r, _ := newTestResolver(map[string]string{"A": "${MISSING}/a"})

	rp := r.ResolvePath("${MISSING}/${A}/${MISSING}", 0)
	count := 0
	for _, name := range rp.UnresolvedVariables {
		if name == "MISSING" {
			count++
		}
	}
	if count != 1 {
		t.Errorf("MISSING recorded %d times in %v, want once", count, rp.UnresolvedVariables)
	}
}

func TestResolvePathUnresolvedOrder(t *testing.T) {
	r, _ := newTestResolver(nil)

	rp := r.ResolvePath("${BETA}/${ALPHA}", 0)
	want := []string{"BETA", "ALPHA"}
	if len(rp.UnresolvedVariables) != len(want) {
		t.Fatalf("UnresolvedVariables = %v, want %v", rp.UnresolvedVariables, want)
	}
	for i := range want {
		if rp.UnresolvedVariables[i] != want[i] {
			t.Errorf("UnresolvedVariables[%d] = %q, want %q", i, rp.UnresolvedVariables[i], want[i])
		}
	}
}

func TestResolvePathExistence(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "CMakeLists.txt")
	if err := os.WriteFile(file, []byte("project(demo)\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	r, _ := newTestResolver(map[string]string{
		"DIR":  dir,
		"GONE": filepath.Join(dir, "missing"),
	})

	rp := r.ResolvePath("${DIR}/CMakeLists.txt", 0)
	if !rp.Exists {
		t.Errorf("Exists = false for %q, want true", rp.Resolved)
	}

	rp = r.ResolvePath("${DIR}", 0)
	if !rp.Exists {
		t.Errorf("Exists = false for directory %q, want true", rp.Resolved)
	}

	rp = r.ResolvePath("${GONE}/nope", 0)
	if rp.Exists {
		t.Errorf("Exists = true for %q, want false", rp.Resolved)
	}
}

func TestResolvePathMaxDepthDefault(t *testing.T) {
	r, _ := newTestResolver(map[string]string{"LOOP": "${LOOP}x"})

	for _, depth := range []int{0, -5} {
		rp := r.ResolvePath("${LOOP}", depth)
		// Ten passes append ten copies of x before the budget runs out.
		if rp.Resolved != "${LOOP}"+strings.Repeat("x", 10) {
			t.Errorf("ResolvePath(depth=%d).Resolved = %q, want ten expansions", depth, rp.Resolved)
		}
	}
}

func TestResolvePathBuiltinSeeds(t *testing.T) {
	r, _ := newTestResolver(nil)

	rp := r.ResolvePath("${CMAKE_SOURCE_DIR}/src", 0)
	if rp.Resolved != "/ws/src" {
		t.Errorf("Resolved = %q, want %q", rp.Resolved, "/ws/src")
	}
	rp = r.ResolvePath("${CMAKE_BINARY_DIR}/out", 0)
	if rp.Resolved != "/ws/build/out" {
		t.Errorf("Resolved = %q, want %q", rp.Resolved, "/ws/build/out")
	}
}
