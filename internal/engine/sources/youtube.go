package sources

// Video providers are split by responsibility:
//   videourl.go            URL parsing and canonical YouTube URLs
//   youtube_innertube.go   Innertube API types, constants, and low-level HTTP primitives
//   youtube_transcript.go  caption cues (watch page, engagement panel, ANDROID player)
//   youtube_data.go        Data API v3 videos.list with key fallback
//   youtube_page.go        keyless metadata from the watch page
//   oembed.go              YouTube and TikTok oEmbed
//   rapidapi.go            RapidAPI transcript proxies (YouTube, TikTok)
//   ytdlp.go               yt-dlp subtitle subprocess and VTT parsing
