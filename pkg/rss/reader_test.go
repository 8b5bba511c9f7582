package rss

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pokerjest/animeAggregator/internal/upstream"
)

const singleItemFeed = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0" xmlns:erai="https://www.erai-raws.info/rss-page/">
<channel>
  <title>Erai-raws</title>
  <item>
    <title>[Erai-raws] Sousou no Frieren - 28 [1080p CR WEB-DL AVC AAC][MultiSub][8F3D1A2B]</title>
    <link>https://example.org/frieren-28.torrent</link>
    <pubDate>Sat, 06 Jan 2024 15:30:00 +0000</pubDate>
    <description><![CDATA[<b>Frieren</b> episode 28]]></description>
    <erai:size>1.4 GiB</erai:size>
    <erai:infohash>ABCDEF0123456789ABCDEF0123456789ABCDEF01</erai:infohash>
    <erai:subtitles>[us][br][mx]</erai:subtitles>
    <erai:category>[Airing]</erai:category>
    <erai:title-ja>魂の眠る地</erai:title-ja>
    <erai:title-en>Resting Place of Souls</erai:title-en>
    <erai:length>24</erai:length>
  </item>
</channel>
</rss>`

const multiItemFeed = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0" xmlns:nyaa="https://nyaa.si/xmlns/nyaa">
<channel>
  <title>Nyaa</title>
  <item>
    <title>[SubsPlease] Dungeon Meshi - 13 (1080p)</title>
    <link>https://nyaa.si/download/1.torrent</link>
    <pubDate>Thu, 28 Mar 2024 15:31:00 -0000</pubDate>
    <nyaa:seeders>120</nyaa:seeders>
    <nyaa:infoHash>0123456789abcdef0123456789abcdef01234567</nyaa:infoHash>
    <nyaa:size>1.3 GiB</nyaa:size>
  </item>
  <item>
    <title>[SubsPlease] Dungeon Meshi - 12 (1080p)</title>
    <link>https://nyaa.si/download/2.torrent</link>
    <pubDate>Thu, 21 Mar 2024 15:31:00 -0000</pubDate>
    <description>Size: 1.2 GiB | Hash: fedcba9876543210fedcba9876543210fedcba98</description>
  </item>
</channel>
</rss>`

func serve(t *testing.T, status int, body string) *httptest.Server {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestFetch_SingleItem(t *testing.T) {
	srv := serve(t, http.StatusOK, singleItemFeed)
	r := NewReader(5*time.Second, nil)

	items, err := r.Fetch(context.Background(), srv.URL).Get()
	require.NoError(t, err)
	require.Len(t, items, 1)

	it := items[0]
	assert.Equal(t, "https://example.org/frieren-28.torrent", it.Link)
	assert.Equal(t, "1.4 GiB", it.Size)
	assert.Greater(t, it.SizeBytes, uint64(1<<30))
	assert.Equal(t, "abcdef0123456789abcdef0123456789abcdef01", it.InfoHash)
	assert.Equal(t, "[us][br][mx]", it.Subtitles)
	assert.Equal(t, "魂の眠る地", it.TitleJa)
	assert.Equal(t, "Resting Place of Souls", it.TitleEn)
	assert.Equal(t, "24", it.Length)
	assert.Equal(t, "2024-01-06", it.AirDate())
	assert.Equal(t, "2024-01-06T15:30:00Z", it.AirDateUTC())
}

func TestDecode_SingleMatchesMultiShape(t *testing.T) {
	item := `<item><title>[Group] Show - 01 [1080p]</title><link>magnet:?xt=urn:btih:abc</link>` +
		`<pubDate>Mon, 01 Jan 2024 10:00:00 +0000</pubDate></item>`
	other := `<item><title>[Group] Show - 02 [1080p]</title></item>`

	single, err := Decode([]byte(`<rss><channel>` + item + `</channel></rss>`))
	require.NoError(t, err)
	multi, err := Decode([]byte(`<rss><channel>` + item + other + `</channel></rss>`))
	require.NoError(t, err)

	require.Len(t, single, 1)
	require.Len(t, multi, 2)
	assert.Equal(t, multi[0], single[0])
}

func TestDecode_NamespacedFields(t *testing.T) {
	multi, err := Decode([]byte(multiItemFeed))
	require.NoError(t, err)

	require.Len(t, multi, 2)
	assert.Equal(t, "[SubsPlease] Dungeon Meshi - 13 (1080p)", multi[0].Title)
	assert.Equal(t, "0123456789abcdef0123456789abcdef01234567", multi[0].InfoHash)
	assert.Equal(t, "fedcba9876543210fedcba9876543210fedcba98", multi[1].InfoHash)
	assert.Equal(t, "1.2 GiB", multi[1].Size)
}

func TestFetch_ErrorStatus(t *testing.T) {
	srv := serve(t, http.StatusBadGateway, "upstream down")
	r := NewReader(5*time.Second, nil)

	res := r.Fetch(context.Background(), srv.URL)
	require.True(t, res.IsError())
	assert.Equal(t, upstream.KindUnavailable, upstream.KindOf(res.Error()))
	assert.Empty(t, r.FetchOrEmpty(context.Background(), srv.URL))
}

func TestFetch_MalformedXML(t *testing.T) {
	srv := serve(t, http.StatusOK, "<rss><channel><item><title>broken")
	r := NewReader(5*time.Second, nil)

	res := r.Fetch(context.Background(), srv.URL)
	require.True(t, res.IsError())
	assert.Equal(t, upstream.KindMalformed, upstream.KindOf(res.Error()))
	assert.NotNil(t, r.FetchOrEmpty(context.Background(), srv.URL))
}

func TestParsePubDate(t *testing.T) {
	assert.False(t, ParsePubDate("Sat, 06 Jan 2024 15:30:00 +0000").IsZero())
	assert.False(t, ParsePubDate("Sat, 6 Jan 2024 15:30:00 GMT").IsZero())
	assert.False(t, ParsePubDate("2024-01-06T15:30:00Z").IsZero())
	assert.True(t, ParsePubDate("yesterday").IsZero())
}
