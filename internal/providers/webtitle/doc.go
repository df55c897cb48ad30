// Package webtitle resolves the title a browser window will show for a
// URL, so Chrome app windows can be matched by title.
//
// Libraries:
//   - go-retryablehttp: fetching with retry and backoff
//   - chardet and x/net/html/charset: decoding non UTF-8 pages
//   - goquery and htmlquery: reading <title> and meta tags
//   - bluemonday: stripping markup from extracted text
package webtitle
