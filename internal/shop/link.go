package shop

import "strings"

// parseNextLink extracts the rel="next" target from a Link header such as
//
//	<https://x/orders.json?page_info=abc>; rel="previous", <https://x/orders.json?page_info=def>; rel="next"
//
// An empty string means there is no further page.
func parseNextLink(header string) string {
	if header == "" {
		return ""
	}
	for _, part := range strings.Split(header, ",") {
		part = strings.TrimSpace(part)
		if !strings.Contains(part, `rel="next"`) {
			continue
		}
		end := strings.Index(part, ">")
		if !strings.HasPrefix(part, "<") || end < 0 {
			continue
		}
		return part[1:end]
	}
	return ""
}
