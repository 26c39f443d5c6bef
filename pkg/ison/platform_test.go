package ison

import (
	"os"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGlobToRegexp(t *testing.T) {
	re, err := globToRegexp("web-*")
	require.NoError(t, err)
	assert.True(t, re.MatchString("web-01"))
	assert.False(t, re.MatchString("db-01"))

	re, err = globToRegexp("host?")
	require.NoError(t, err)
	assert.True(t, re.MatchString("hostA"))
	assert.False(t, re.MatchString("hostAB"))
}

func TestApplyPlatformOverlayMergesCurrentOS(t *testing.T) {
	hostname, err := os.Hostname()
	require.NoError(t, err)

	name := currentPlatformName()
	doc := NewOMap()
	doc.Set("existing", String("original"))

	hostNode := NewOMap()
	hostNode.Set("__data__", MapOf(mapOf("existing", String("from-host"), "extra", Int(1))))

	osNode := NewOMap()
	osNode.Set("__data__", MapOf(mapOf("existing", String("from-os"))))
	osNode.Set(hostname, MapOf(hostNode))

	platforms := NewOMap()
	platforms.Set(name, MapOf(osNode))
	doc.Set(keyPlatform, MapOf(platforms))

	ev := NewEvaluator(Null(), NewFunctionRegistry(), nil, false)
	require.NoError(t, ev.applyPlatformOverlay(doc))

	_, hasKey := doc.Get(keyPlatform)
	assert.False(t, hasKey, "__platform__ must be removed after overlay")

	existing, _ := doc.Get("existing")
	assert.Equal(t, "from-host", existing.Str(), "hostname-level __data__ must win over OS-level __data__ and the original value")

	extra, ok := doc.Get("extra")
	require.True(t, ok)
	assert.Equal(t, int64(1), extra.Int())
}

func TestApplyPlatformOverlayUnknownOSContributesNothing(t *testing.T) {
	doc := NewOMap()
	doc.Set("existing", String("original"))

	platforms := NewOMap()
	platforms.Set("PlanNine", MapOf(NewOMap()))
	doc.Set(keyPlatform, MapOf(platforms))

	ev := NewEvaluator(Null(), NewFunctionRegistry(), nil, false)
	require.NoError(t, ev.applyPlatformOverlay(doc))

	existing, _ := doc.Get("existing")
	assert.Equal(t, "original", existing.Str())
}

func TestApplyPlatformOverlayHostAlias(t *testing.T) {
	name := currentPlatformName()
	doc := NewOMap()

	hostNode := NewOMap()
	hostNode.Set("__data__", MapOf(mapOf("aliased", Bool(true))))

	osNode := NewOMap()
	osNode.Set("ci-runner-*", MapOf(hostNode))

	platforms := NewOMap()
	platforms.Set(name, MapOf(osNode))
	doc.Set(keyPlatform, MapOf(platforms))

	ev := NewEvaluator(Null(), NewFunctionRegistry(), nil, false)
	actualHost, err := os.Hostname()
	require.NoError(t, err)
	ev.HostAliases = map[string][]string{actualHost: {"ci-runner-7"}}
	require.NoError(t, ev.applyPlatformOverlay(doc))

	aliased, ok := doc.Get("aliased")
	require.True(t, ok)
	assert.True(t, aliased.Bool())
}

func TestCurrentPlatformNameMapsGOOS(t *testing.T) {
	name := currentPlatformName()
	if mapped, ok := platformGOOSNames[runtime.GOOS]; ok {
		assert.Equal(t, mapped, name)
	} else {
		assert.Equal(t, runtime.GOOS, name)
	}
}

func mapOf(kv ...any) *OMap {
	m := NewOMap()
	for i := 0; i+1 < len(kv); i += 2 {
		m.Set(kv[i].(string), kv[i+1].(Value))
	}
	return m
}
