package calendarquery

import (
	"strconv"
	"strings"

	"github.com/beevik/etree"
	"github.com/cyp0633/caldorafs/storage"
)

// Request is a parsed calendar-query REPORT body.
type Request struct {
	// Props lists the requested property names in lower case, without namespace.
	Props []string
	// Filter is nil when the request carries no comp-filter.
	Filter *storage.Filter
	// Limit is the <limit><nresults> value, 0 when absent.
	Limit int
}

// Query converts the request into a storage query scoped to calendarPath.
func (r *Request) Query(calendarPath string) storage.Query {
	return storage.Query{
		Calendar: calendarPath,
		Filter:   r.Filter,
		Limit:    r.Limit,
	}
}

// ParseRequest parses a calendar-query REPORT request body. A document whose
// root is a bare <filter> is accepted as a request carrying only that filter.
func ParseRequest(data []byte) (*Request, error) {
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil, storage.UnsupportedFilterError("empty calendar-query document")
	}

	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(data); err != nil {
		return nil, storage.UnsupportedFilterError("malformed calendar-query document: %v", err)
	}

	calendarQueryElem := doc.Root()
	if calendarQueryElem != nil && localName(calendarQueryElem) == "filter" {
		filter, err := ParseFilterElement(calendarQueryElem)
		if err != nil {
			return nil, err
		}
		return &Request{Filter: filter}, nil
	}
	if calendarQueryElem == nil || localName(calendarQueryElem) != "calendar-query" {
		return nil, storage.UnsupportedFilterError("missing calendar-query root element")
	}

	req := &Request{}
	if propElem := findElementIgnoreNS(calendarQueryElem, "prop"); propElem != nil {
		for _, elem := range propElem.ChildElements() {
			req.Props = append(req.Props, localName(elem))
		}
	}

	if filterElem := findElementIgnoreNS(calendarQueryElem, "filter"); filterElem != nil {
		filter, err := ParseFilterElement(filterElem)
		if err != nil {
			return nil, err
		}
		req.Filter = filter
	}

	if limitElem := findElementIgnoreNS(calendarQueryElem, "limit"); limitElem != nil {
		nresults := findElementIgnoreNS(limitElem, "nresults")
		if nresults == nil {
			return nil, storage.UnsupportedFilterError("limit without nresults")
		}
		n, err := strconv.Atoi(strings.TrimSpace(nresults.Text()))
		if err != nil || n < 0 {
			return nil, storage.UnsupportedFilterError("invalid nresults %q", nresults.Text())
		}
		req.Limit = n
	}

	return req, nil
}
