package dom

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustParse(t *testing.T, src string) *Document {
	t.Helper()
	doc, err := Parse(strings.NewReader(src), "https://example.com/")
	require.NoError(t, err)
	return doc
}

func TestParse_TitleAndBody(t *testing.T) {
	doc := mustParse(t, `<html><head><title> Shop  Home </title></head><body><p>hi</p></body></html>`)

	assert.Equal(t, "Shop Home", doc.Title())
	assert.Equal(t, "https://example.com/", doc.URL())
	require.NotNil(t, doc.Body())
	assert.Equal(t, "body", doc.Body().Data)
}

func TestParse_Visibility(t *testing.T) {
	doc := mustParse(t, `<body>
		<button id="shown">Go</button>
		<button id="none" style="display:none">x</button>
		<div style="visibility: hidden"><a id="inherit" href="/">in</a></div>
		<button id="faded" style="opacity:0">f</button>
		<button id="flat" style="height:0">f</button>
		<div hidden><span id="child">c</span></div>
		<input id="secret" type="hidden" value="1">
	</body>`)

	cases := map[string]bool{
		"#shown":   true,
		"#none":    false,
		"#inherit": false,
		"#faded":   false,
		"#flat":    false,
		"#child":   false,
		"#secret":  false,
	}
	for sel, want := range cases {
		n, err := doc.Query(sel)
		require.NoError(t, err)
		require.NotNil(t, n, sel)
		assert.Equal(t, want, doc.Visible(n), sel)
	}
}

func TestDocument_QueryInvalidSelector(t *testing.T) {
	doc := mustParse(t, `<body><p>x</p></body>`)

	_, err := doc.QueryAll("p[")
	assert.Error(t, err)
	assert.Equal(t, 0, doc.Count("p["))
	assert.Equal(t, 1, doc.Count("p"))
}

func TestDocument_InnerTextSkipsHidden(t *testing.T) {
	doc := mustParse(t, `<body><div id="box">Hello <span style="display:none">secret</span><script>var x</script> world</div></body>`)

	box, err := doc.Query("#box")
	require.NoError(t, err)
	assert.Equal(t, "Hello world", doc.InnerText(box))
}

func TestDocument_LabelFallsBackToAttributes(t *testing.T) {
	doc := mustParse(t, `<body><input id="q" placeholder="Search products"><button id="b" aria-label="Close"></button></body>`)

	q, _ := doc.Query("#q")
	b, _ := doc.Query("#b")
	assert.Equal(t, "Search products", doc.Label(q))
	assert.Equal(t, "Close", doc.Label(b))
}

func TestClassify(t *testing.T) {
	doc := mustParse(t, `<body>
		<a id="link" href="/x">x</a>
		<a id="anchor">x</a>
		<div id="role" role="button">x</div>
		<div id="click" onclick="go()">x</div>
		<div id="tab" tabindex="0">x</div>
		<div id="neg" tabindex="-1">x</div>
		<div id="ptr" style="cursor:pointer">card</div>
		<p id="para">text</p>
	</body>`)

	want := map[string]Capability{
		"#link":   Interactive,
		"#anchor": Scannable,
		"#role":   Interactive,
		"#click":  Interactive,
		"#tab":    Interactive,
		"#neg":    Scannable,
		"#ptr":    Interactive,
		"#para":   Scannable,
	}
	for sel, c := range want {
		n, _ := doc.Query(sel)
		require.NotNil(t, n, sel)
		assert.Equal(t, c, doc.Classify(n), sel)
	}
}

func TestDecode_WireTree(t *testing.T) {
	payload := `{
		"url": "https://shop.test/",
		"title": "Shop",
		"viewport": {"width": 1000, "height": 800, "scrollX": 0, "scrollY": 120},
		"root": {"tag": "HTML", "rect": [0,0,1000,2000], "style": {"d":"block","v":"visible","o":1,"pe":"auto","c":"auto"},
			"children": [
				{"tag": "body", "rect": [0,0,1000,2000], "style": {"d":"block","v":"visible","o":1,"pe":"auto","c":"auto"},
					"children": [
						{"tag": "button", "attrs": [["id","buy"],["class","btn primary"]], "rect": [10,20,80,30],
							"style": {"d":"inline-block","v":"visible","o":1,"pe":"auto","c":"pointer"},
							"children": [{"text": "Buy now"}]},
						{"tag": "div", "attrs": [["id","gone"]], "rect": [0,0,0,0],
							"style": {"d":"none","v":"visible","o":1,"pe":"auto","c":"auto"}}
					]}
			]}
	}`

	doc, err := Decode([]byte(payload))
	require.NoError(t, err)
	assert.Equal(t, "Shop", doc.Title())
	assert.Equal(t, 120.0, doc.Viewport().ScrollY)

	buy, err := doc.Query("button.btn.primary")
	require.NoError(t, err)
	require.NotNil(t, buy)
	assert.True(t, doc.Visible(buy))
	assert.Equal(t, "Buy now", doc.InnerText(buy))

	l, ok := doc.Layout(buy)
	require.True(t, ok)
	assert.Equal(t, Rect{X: 10, Y: 20, Width: 80, Height: 30}, l.Rect)

	gone, _ := doc.Query("#gone")
	require.NotNil(t, gone)
	assert.False(t, doc.Visible(gone))
	assert.True(t, doc.Connected(gone))
}

func TestDecode_RejectsEmptyRoot(t *testing.T) {
	_, err := Decode([]byte(`{"url":"x","root":{}}`))
	assert.Error(t, err)

	_, err = Decode([]byte(`not json`))
	assert.Error(t, err)
}

func TestParseInlineStyle(t *testing.T) {
	got := ParseInlineStyle("Display: NONE ; opacity:0.5;bogus; cursor: pointer !important")
	assert.Equal(t, "none", got["display"])
	assert.Equal(t, "0.5", got["opacity"])
	assert.Equal(t, "pointer", got["cursor"])
	_, ok := got["bogus"]
	assert.False(t, ok)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "héll", Truncate("héllo", 4))
	assert.Equal(t, "abc", Truncate("abc", 10))
	assert.Equal(t, "", Truncate("abc", 0))
}
