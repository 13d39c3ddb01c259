package scrape

import (
	"fmt"
	"net/url"
	"path"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	jsbeautifier "github.com/ditashi/jsbeautifier-go/jsbeautifier"
	"github.com/ditashi/jsbeautifier-go/optargs"

	"github.com/willcraig/scrapelapse/internal/model"
	"github.com/willcraig/scrapelapse/internal/network"
)

// scriptImageRegex matches quoted .jpg references inside inline scripts.
var scriptImageRegex = regexp.MustCompile(`["']([^"'<>\s]+\.jpg(?:\?[^"']*)?)["']`)

// Result holds the images discovered on a gallery page.
type Result struct {
	Images  []model.Image
	Skipped []string // filenames without a recognizable timestamp
}

// Discover extracts timestamped image links from the provided gallery HTML.
// Anchor hrefs ending in .jpg are collected first; inline scripts are then
// mined for quoted .jpg references to cover galleries that assemble their
// image list in JavaScript. Relative links resolve against baseURL and
// duplicates (by filename) are dropped.
func Discover(content, baseURL string) (Result, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(content))
	if err != nil {
		return Result{}, fmt.Errorf("parse gallery page: %w", err)
	}

	var hrefs []string

	doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		href, ok := sel.Attr("href")
		if ok && isJPGLink(href) {
			hrefs = append(hrefs, href)
		}
	})

	doc.Find("script").Each(func(_ int, sel *goquery.Selection) {
		if src, ok := sel.Attr("src"); ok && src != "" {
			return
		}
		hrefs = append(hrefs, mineScript(sel.Text())...)
	})

	var result Result
	seen := map[string]struct{}{}

	for _, href := range hrefs {
		resolved, ok := network.ResolveImageURL(href, baseURL)
		if !ok {
			continue
		}

		filename, ok := imageFilename(resolved)
		if !ok {
			continue
		}

		if _, dup := seen[filename]; dup {
			continue
		}
		seen[filename] = struct{}{}

		ts, err := ParseTimestamp(filename)
		if err != nil {
			result.Skipped = append(result.Skipped, filename)
			continue
		}

		result.Images = append(result.Images, model.Image{
			URL:       resolved,
			Filename:  filename,
			Timestamp: ts,
		})
	}

	return result, nil
}

// mineScript extracts quoted .jpg references from an inline script body.
// The script is beautified first so minified one-liners still yield clean
// matches.
func mineScript(script string) []string {
	trimmed := strings.TrimSpace(script)
	if trimmed == "" {
		return nil
	}

	matches := scriptImageRegex.FindAllStringSubmatch(beautify(trimmed), -1)
	if len(matches) == 0 {
		return nil
	}

	links := make([]string, 0, len(matches))
	for _, m := range matches {
		links = append(links, m[1])
	}
	return links
}

func beautify(content string) string {
	if len(content) > 1_000_000 {
		replacer := strings.NewReplacer(";", ";\r\n", ",", ",\r\n")
		return replacer.Replace(content)
	}

	options := optargs.MapType{}
	options.Copy(optargs.MapType(jsbeautifier.DefaultOptions()))
	result, err := jsbeautifier.Beautify(&content, options)
	if err != nil {
		return content
	}
	return result
}

func isJPGLink(href string) bool {
	trimmed := href
	if idx := strings.IndexAny(trimmed, "?#"); idx != -1 {
		trimmed = trimmed[:idx]
	}
	return strings.HasSuffix(strings.ToLower(trimmed), ".jpg")
}

func imageFilename(resolved string) (string, bool) {
	u, err := url.Parse(resolved)
	if err != nil {
		return "", false
	}

	name := path.Base(u.Path)
	if name == "." || name == "/" || name == "" {
		return "", false
	}
	return name, true
}
