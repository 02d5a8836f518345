package content

import (
	"fmt"
	"net/url"
	"path"
	"strings"

	"github.com/beevik/etree"
	"golang.org/x/net/html/charset"

	"e2s/archive"
)

const (
	containerPath   = "META-INF/container.xml"
	packageMimeType = "application/oebps-package+xml"
)

// Package is what we need from EPUB package document.
type Package struct {
	Path       string
	Identifier string
	Title      string
	Language   string
	// Spine lists archive member names of content documents in reading
	// order.
	Spine []string
}

func readXML(r *archive.Reader, name string) (*etree.Document, error) {
	data, err := r.ReadBytes(name)
	if err != nil {
		return nil, err
	}
	doc := etree.NewDocument()
	doc.ReadSettings = etree.ReadSettings{
		CharsetReader: charset.NewReaderLabel,
		Permissive:    true,
	}
	if err := doc.ReadFromBytes(data); err != nil {
		return nil, fmt.Errorf("unable to parse %s: %w", name, err)
	}
	if doc.Root() == nil {
		return nil, fmt.Errorf("%s has no root element", name)
	}
	return doc, nil
}

// locatePackage finds package document path using container.xml, falling
// back to the first .opf member in the archive. Empty result means book has
// no package document.
func locatePackage(r *archive.Reader) (string, error) {
	if r.Find(containerPath) == nil {
		names, err := r.List("", ".opf")
		if err != nil || len(names) == 0 {
			return "", err
		}
		return names[0], nil
	}

	doc, err := readXML(r, containerPath)
	if err != nil {
		return "", err
	}

	var fallback string
	for _, rf := range doc.FindElements("//rootfiles/rootfile") {
		full := strings.TrimSpace(rf.SelectAttrValue("full-path", ""))
		if full == "" {
			continue
		}
		if strings.EqualFold(strings.TrimSpace(rf.SelectAttrValue("media-type", "")), packageMimeType) {
			return full, nil
		}
		if fallback == "" {
			fallback = full
		}
	}
	if fallback == "" {
		return "", fmt.Errorf("%s has no usable rootfile entries", containerPath)
	}
	return fallback, nil
}

// readPackage locates and parses package document. Returns nil without error
// when archive does not have one.
func readPackage(r *archive.Reader) (*Package, error) {
	opfPath, err := locatePackage(r)
	if err != nil || opfPath == "" {
		return nil, err
	}

	doc, err := readXML(r, opfPath)
	if err != nil {
		return nil, err
	}
	root := doc.Root()

	pkg := &Package{Path: opfPath}
	if md := root.SelectElement("metadata"); md != nil {
		pkg.Identifier = uniqueIdentifier(md, root.SelectAttrValue("unique-identifier", ""))
		pkg.Title = firstText(md, "title")
		pkg.Language = firstText(md, "language")
	}

	hrefs := make(map[string]string)
	if manifest := root.SelectElement("manifest"); manifest != nil {
		for _, item := range manifest.SelectElements("item") {
			hrefs[item.SelectAttrValue("id", "")] = item.SelectAttrValue("href", "")
		}
	}
	if spine := root.SelectElement("spine"); spine != nil {
		for _, ref := range spine.SelectElements("itemref") {
			href, ok := hrefs[ref.SelectAttrValue("idref", "")]
			if !ok {
				continue
			}
			if name := resolveHref(opfPath, href); name != "" {
				pkg.Spine = append(pkg.Spine, name)
			}
		}
	}
	return pkg, nil
}

// uniqueIdentifier prefers dc:identifier referenced by package
// unique-identifier attribute, then the first one.
func uniqueIdentifier(md *etree.Element, id string) string {
	ids := md.SelectElements("identifier")
	for _, el := range ids {
		if id != "" && el.SelectAttrValue("id", "") == id {
			if v := strings.TrimSpace(el.Text()); v != "" {
				return v
			}
		}
	}
	for _, el := range ids {
		if v := strings.TrimSpace(el.Text()); v != "" {
			return v
		}
	}
	return ""
}

func firstText(md *etree.Element, tag string) string {
	for _, el := range md.SelectElements(tag) {
		if v := strings.TrimSpace(el.Text()); v != "" {
			return v
		}
	}
	return ""
}

// resolveHref resolves manifest href relative to package document. Fragment
// is dropped, paths escaping archive root give empty result.
func resolveHref(opfPath, href string) string {
	href = strings.TrimSpace(href)
	if i := strings.IndexByte(href, '#'); i >= 0 {
		href = href[:i]
	}
	if href == "" || strings.HasPrefix(href, "/") {
		return ""
	}
	if decoded, err := url.PathUnescape(href); err == nil {
		href = decoded
	}
	joined := path.Clean(path.Join(path.Dir(opfPath), href))
	if joined == ".." || strings.HasPrefix(joined, "../") {
		return ""
	}
	return joined
}
