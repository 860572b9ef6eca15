package richtext

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/starford/folio/internal/testutil"
)

func parse(t *testing.T, runs any) gjson.Result {
	t.Helper()
	b, err := json.Marshal(runs)
	require.NoError(t, err)
	return gjson.ParseBytes(b)
}

func TestFromJSON_PreservesPlainText(t *testing.T) {
	runs := []map[string]any{
		testutil.Text("Hello, "),
		testutil.StyledText("brave", testutil.Annotations{Bold: true, Color: "red"}, ""),
		testutil.Text(" new world  "),
	}
	units := FromJSON(parse(t, runs))
	require.Len(t, units, 3)
	assert.Equal(t, "Hello, brave new world  ", PlainText(units))
	assert.True(t, units[1].Annotations.Bold)
	assert.Equal(t, "red", units[1].Annotations.Color)
	assert.Equal(t, "default", units[0].Annotations.Color)
}

func TestFromJSON_LinkPrecedence(t *testing.T) {
	raw := `[
		{"type":"text","text":{"content":"a","link":{"url":"https://embedded.example"}},"plain_text":"a","href":"https://href.example"},
		{"type":"text","text":{"content":"b","link":{"url":"https://embedded.example"}},"plain_text":"b","href":null},
		{"type":"text","text":{"content":"c","link":null},"plain_text":"c","href":null}
	]`
	units := FromJSON(gjson.Parse(raw))
	require.Len(t, units, 3)
	assert.Equal(t, "https://href.example", units[0].Link)
	assert.Equal(t, "https://embedded.example", units[1].Link)
	assert.Empty(t, units[2].Link)
}

func TestFromJSON_NonTextKinds(t *testing.T) {
	raw := `[
		{"type":"mention","mention":{"type":"user"},"plain_text":"@Ada","href":null},
		{"type":"equation","equation":{"expression":"e=mc^2"},"plain_text":"e=mc^2","href":null},
		{"type":"something_new","plain_text":"?"}
	]`
	units := FromJSON(gjson.Parse(raw))
	require.Len(t, units, 3)
	assert.Equal(t, KindMention, units[0].Kind)
	assert.Equal(t, "@Ada", units[0].PlainText)
	assert.Equal(t, KindEquation, units[1].Kind)
	assert.Equal(t, KindText, units[2].Kind)
}

func TestFromJSON_Empty(t *testing.T) {
	assert.Empty(t, FromJSON(gjson.Parse(`[]`)))
	assert.Nil(t, FromJSON(gjson.Result{}))
	assert.True(t, IsBlank(nil))
	assert.Equal(t, "", PlainText(nil))
}
