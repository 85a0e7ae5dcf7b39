package printing_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/pluginrig/internal/manager"
	"github.com/vk/pluginrig/internal/printing"
	"github.com/vk/pluginrig/internal/testutil"
)

func TestDocumentModule(t *testing.T) {
	mm := manager.New()
	require.NoError(t, mm.AddModule("Four", testutil.NewFourModule().Impl()))
	mod, err := mm.At("Four")
	require.NoError(t, err)

	var b strings.Builder
	printing.DocumentModule(&b, "Four", mod)
	doc := b.String()

	assert.Contains(t, doc, "Four\n####")
	assert.Contains(t, doc, "Returns 4, regardless of its input")
	assert.Contains(t, doc, ":Option 1: int")
	assert.Contains(t, doc, ":Result 1: int")
	assert.Contains(t, doc, "Satisfies: testutil.OneInOneOutPT")
}

func TestDocumentModuleSubmodsAndFlags(t *testing.T) {
	mm := manager.New()
	require.NoError(t, mm.AddModule("Parent", testutil.NewSubModModule().Impl()))
	require.NoError(t, mm.AddModule("Transparent", testutil.NewTransparentModule().Impl()))

	var b strings.Builder
	parent, err := mm.At("Parent")
	require.NoError(t, err)
	printing.DocumentModule(&b, "Parent", parent)
	assert.Contains(t, b.String(), ":Submodule 1: requires testutil.NullPT")

	b.Reset()
	tr, err := mm.At("Transparent")
	require.NoError(t, err)
	printing.DocumentModule(&b, "Transparent", tr)
	assert.Contains(t, b.String(), "(optional, transparent)")
}

func TestDocumentModulesIndex(t *testing.T) {
	mm := manager.New()
	require.NoError(t, mm.AddModule("Alpha", testutil.NewNullModule().Impl()))
	require.NoError(t, mm.AddModule("Beta", testutil.NewFourModule().Impl()))

	var b strings.Builder
	printing.DocumentModules(&b, mm)
	doc := b.String()
	assert.Contains(t, doc, "Available modules")
	assert.Contains(t, doc, "* Alpha\n* Beta\n")
	assert.Less(t, strings.Index(doc, "* Alpha"), strings.Index(doc, "Alpha\n#####"), "index precedes the pages")
}
