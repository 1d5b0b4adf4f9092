package app

import (
	"fmt"
	"regexp"
	"strings"
)

var doubleQuoteHref = regexp.MustCompile(`href="(/[^"]*)"`)
var singleQuoteHref = regexp.MustCompile(`href='(/[^']*)'`)

// localizeInternalLinks prefixes site-relative hrefs in rendered content with
// the locale segment so readers stay in their language.
func localizeInternalLinks(content, prefix string) string {
	if prefix == "" {
		return content
	}

	rewrite := func(match string, re *regexp.Regexp) string {
		sub := re.FindStringSubmatch(match)
		if len(sub) != 2 {
			return match
		}
		href := sub[1]
		if strings.HasPrefix(href, "//") || href == prefix || strings.HasPrefix(href, prefix+"/") {
			return match
		}

		href = prefix + href
		if re == doubleQuoteHref {
			return fmt.Sprintf("href=\"%s\"", href)
		}
		return fmt.Sprintf("href='%s'", href)
	}

	content = doubleQuoteHref.ReplaceAllStringFunc(content, func(s string) string {
		return rewrite(s, doubleQuoteHref)
	})

	content = singleQuoteHref.ReplaceAllStringFunc(content, func(s string) string {
		return rewrite(s, singleQuoteHref)
	})

	return content
}

// localePrefix is the path segment for locale, empty for the default one.
func localePrefix(locale, defaultLocale string) string {
	if locale == "" || locale == defaultLocale {
		return ""
	}
	return "/" + locale
}

// localizePath prefixes a site path for locale.
func localizePath(locale, defaultLocale, path string) string {
	prefix := localePrefix(locale, defaultLocale)
	if prefix == "" {
		return path
	}
	if path == "/" {
		return prefix
	}
	return prefix + path
}
