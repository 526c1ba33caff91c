package cleaner

import "net/url"

// additionalParamsRule is the rule identifier reported when the caller's
// block-list removed something.
const additionalParamsRule = "additional_params"

// removeAdditionalParams strips the caller's block-listed parameter names,
// matched exactly.
func (c *Cleaner) removeAdditionalParams(u *url.URL) bool {
	if len(c.additional) == 0 {
		return false
	}
	return removeParams(u, func(q queryParam) bool {
		_, blocked := c.additional[q.name]
		return blocked
	})
}
