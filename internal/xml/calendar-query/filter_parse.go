package calendarquery

import (
	"strings"
	"time"

	"github.com/beevik/etree"
	"github.com/cyp0633/caldorafs/storage"
)

// timeRangeLayout is the UTC date-time form required on time-range bounds.
const timeRangeLayout = "20060102T150405Z"

// filterChildren lists the child elements each filter element may hold.
// Anything else is rejected.
var filterChildren = map[string]map[string]bool{
	"filter":       {"comp-filter": true},
	"comp-filter":  {"is-not-defined": true, "time-range": true, "prop-filter": true, "comp-filter": true},
	"prop-filter":  {"is-not-defined": true, "time-range": true, "text-match": true, "param-filter": true},
	"param-filter": {"is-not-defined": true, "text-match": true},
}

// singleChildren may appear at most once in their parent.
var singleChildren = map[string]bool{
	"is-not-defined": true,
	"time-range":     true,
	"text-match":     true,
}

// checkChildren rejects unknown or repeated child elements, and an
// is-not-defined that is not the element's only child.
func checkChildren(elem *etree.Element, name string) error {
	kind := localName(elem)
	label := kind
	if name != "" {
		label += " " + name
	}
	children := elem.ChildElements()
	seen := map[string]bool{}
	for _, child := range children {
		childName := localName(child)
		if !filterChildren[kind][childName] {
			return storage.UnsupportedFilterError("unsupported element %s in %s", childName, label)
		}
		if singleChildren[childName] && seen[childName] {
			return storage.UnsupportedFilterError("repeated %s in %s", childName, label)
		}
		seen[childName] = true
	}
	if seen["is-not-defined"] && len(children) > 1 {
		return storage.UnsupportedFilterError("is-not-defined on %s combined with other constraints", name)
	}
	return nil
}

// ParseFilter parses a document whose root is a <filter> element.
func ParseFilter(data []byte) (*storage.Filter, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(data); err != nil {
		return nil, storage.UnsupportedFilterError("malformed filter document: %v", err)
	}
	root := doc.Root()
	if root == nil || localName(root) != "filter" {
		return nil, storage.UnsupportedFilterError("document root is not a filter element")
	}
	return ParseFilterElement(root)
}

// ParseFilterElement parses a <filter> element into a Filter structure.
// A nil element or one without a comp-filter yields a nil filter, which
// matches everything.
func ParseFilterElement(filterElem *etree.Element) (*storage.Filter, error) {
	if filterElem == nil {
		return nil, nil
	}
	if localName(filterElem) == "filter" {
		if err := checkChildren(filterElem, ""); err != nil {
			return nil, err
		}
	}

	compFilters := getElementsIgnoreNS(filterElem, "comp-filter")
	switch len(compFilters) {
	case 0:
		return nil, nil
	case 1:
	default:
		return nil, storage.UnsupportedFilterError("filter holds %d top-level comp-filters", len(compFilters))
	}
	return parseCompFilter(compFilters[0])
}

// parseCompFilter recursively parses a comp-filter element
func parseCompFilter(compFilterElem *etree.Element) (*storage.Filter, error) {
	filter := &storage.Filter{
		Component: strings.ToUpper(compFilterElem.SelectAttrValue("name", "")),
		Test:      strings.ToLower(compFilterElem.SelectAttrValue("test", "")),
	}
	if filter.Component == "" {
		return nil, storage.UnsupportedFilterError("comp-filter without a name")
	}

	if err := checkChildren(compFilterElem, filter.Component); err != nil {
		return nil, err
	}

	if findElementIgnoreNS(compFilterElem, "is-not-defined") != nil {
		filter.IsNotDefined = true
		return filter, nil
	}

	if timeRangeElem := findElementIgnoreNS(compFilterElem, "time-range"); timeRangeElem != nil {
		tr, err := parseTimeRange(timeRangeElem)
		if err != nil {
			return nil, err
		}
		filter.TimeRange = tr
	}

	for _, propFilterElem := range getElementsIgnoreNS(compFilterElem, "prop-filter") {
		propFilter, err := parsePropFilter(propFilterElem)
		if err != nil {
			return nil, err
		}
		filter.PropFilters = append(filter.PropFilters, propFilter)
	}

	for _, nestedElem := range getElementsIgnoreNS(compFilterElem, "comp-filter") {
		nested, err := parseCompFilter(nestedElem)
		if err != nil {
			return nil, err
		}
		filter.Children = append(filter.Children, *nested)
	}

	return filter, nil
}

func parsePropFilter(propFilterElem *etree.Element) (storage.PropFilter, error) {
	propFilter := storage.PropFilter{
		Name: strings.ToUpper(propFilterElem.SelectAttrValue("name", "")),
		Test: strings.ToLower(propFilterElem.SelectAttrValue("test", "")),
	}
	if propFilter.Name == "" {
		return propFilter, storage.UnsupportedFilterError("prop-filter without a name")
	}
	if err := checkChildren(propFilterElem, propFilter.Name); err != nil {
		return propFilter, err
	}

	if findElementIgnoreNS(propFilterElem, "is-not-defined") != nil {
		propFilter.IsNotDefined = true
		return propFilter, nil
	}
	if findElementIgnoreNS(propFilterElem, "time-range") != nil {
		return propFilter, storage.UnsupportedFilterError("time-range on property %s", propFilter.Name)
	}

	if textMatchElem := findElementIgnoreNS(propFilterElem, "text-match"); textMatchElem != nil {
		propFilter.TextMatch = parseTextMatch(textMatchElem)
	}

	for _, paramFilterElem := range getElementsIgnoreNS(propFilterElem, "param-filter") {
		paramFilter, err := parseParamFilter(paramFilterElem)
		if err != nil {
			return propFilter, err
		}
		propFilter.ParamFilters = append(propFilter.ParamFilters, paramFilter)
	}

	return propFilter, nil
}

func parseParamFilter(paramFilterElem *etree.Element) (storage.ParamFilter, error) {
	paramFilter := storage.ParamFilter{
		Name: strings.ToUpper(paramFilterElem.SelectAttrValue("name", "")),
	}
	if paramFilter.Name == "" {
		return paramFilter, storage.UnsupportedFilterError("param-filter without a name")
	}
	if err := checkChildren(paramFilterElem, paramFilter.Name); err != nil {
		return paramFilter, err
	}

	if findElementIgnoreNS(paramFilterElem, "is-not-defined") != nil {
		paramFilter.IsNotDefined = true
		return paramFilter, nil
	}
	if textMatchElem := findElementIgnoreNS(paramFilterElem, "text-match"); textMatchElem != nil {
		paramFilter.TextMatch = parseTextMatch(textMatchElem)
	}
	return paramFilter, nil
}

func parseTextMatch(textMatchElem *etree.Element) *storage.TextMatch {
	return &storage.TextMatch{
		Collation: textMatchElem.SelectAttrValue("collation", storage.CollationASCIICasemap),
		MatchType: textMatchElem.SelectAttrValue("match-type", storage.MatchContains),
		Negate:    textMatchElem.SelectAttrValue("negate-condition", "no") == "yes",
		Value:     textMatchElem.Text(),
	}
}

// parseTimeRange parses a time-range element. Both bounds are optional, but
// a present bound must be a UTC date-time.
func parseTimeRange(timeRangeElem *etree.Element) (*storage.TimeRange, error) {
	timeRange := &storage.TimeRange{}

	if startStr := timeRangeElem.SelectAttrValue("start", ""); startStr != "" {
		start, err := time.Parse(timeRangeLayout, startStr)
		if err != nil {
			return nil, storage.UnsupportedFilterError("time-range start %q is not a UTC date-time", startStr)
		}
		timeRange.Start = &start
	}
	if endStr := timeRangeElem.SelectAttrValue("end", ""); endStr != "" {
		end, err := time.Parse(timeRangeLayout, endStr)
		if err != nil {
			return nil, storage.UnsupportedFilterError("time-range end %q is not a UTC date-time", endStr)
		}
		timeRange.End = &end
	}
	if timeRange.Start == nil && timeRange.End == nil {
		return nil, storage.UnsupportedFilterError("time-range without start or end")
	}

	return timeRange, nil
}

// Helper functions to handle namespaces

func localName(elem *etree.Element) string {
	tagName := elem.Tag
	if i := strings.LastIndex(tagName, ":"); i >= 0 {
		tagName = tagName[i+1:]
	}
	return strings.ToLower(tagName)
}

// getElementsIgnoreNS returns all child elements with the given local name, ignoring namespace
func getElementsIgnoreNS(parent *etree.Element, name string) []*etree.Element {
	var elements []*etree.Element
	for _, child := range parent.ChildElements() {
		if localName(child) == name {
			elements = append(elements, child)
		}
	}
	return elements
}

// findElementIgnoreNS finds the first child element with the given local name, ignoring namespace
func findElementIgnoreNS(parent *etree.Element, name string) *etree.Element {
	elements := getElementsIgnoreNS(parent, name)
	if len(elements) > 0 {
		return elements[0]
	}
	return nil
}
