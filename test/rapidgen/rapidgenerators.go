// Copyright (C) 2021-2024 The go-vrrb Authors
// This file is part of go-vrrb
//
// go-vrrb is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version.
//
// go-vrrb is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with go-vrrb.  If not, see <https://www.gnu.org/licenses/>.

// Package rapidgen holds rapid generators shared by property tests.
package rapidgen

import (
	"fmt"
	"strings"

	"pgregory.net/rapid"
)

const (
	domainMaxLength        = 255
	domainMaxElementLength = 63
)

var tlds = []string{"com", "org", "net", "io", "dev", "network", "xyz"}

// Domain generates an RFC 1035 compliant domain name.
func Domain() *rapid.Generator[string] {
	return DomainOf(domainMaxLength, domainMaxElementLength)
}

// DomainOf generates an RFC 1035 compliant domain name no longer than maxLength
// whose labels are at most maxElementLength characters.
func DomainOf(maxLength, maxElementLength int) *rapid.Generator[string] {
	assertf(4 <= maxLength, "maximum length (%v) should not be less than 4, to generate a two character domain and a one character subdomain", maxLength)
	assertf(maxLength <= domainMaxLength, "maximum length (%v) should not be greater than 255 to comply with RFC 1035", maxLength)
	assertf(1 <= maxElementLength, "maximum element length (%v) should not be less than 1 to comply with RFC 1035", maxElementLength)
	assertf(maxElementLength <= domainMaxElementLength, "maximum element length (%v) should not be greater than 63 to comply with RFC 1035", maxElementLength)

	label := fmt.Sprintf(`[a-z]([a-z0-9\-]{0,%d}[a-z0-9])?`, max(maxElementLength-2, 0))
	return rapid.Custom(func(t *rapid.T) string {
		domain := rapid.SampledFrom(tlds).Draw(t, "tld")
		n := rapid.IntRange(1, 4).Draw(t, "labels")
		for i := 0; i < n; i++ {
			sub := rapid.StringMatching(label).Filter(func(s string) bool {
				return len(s) <= maxElementLength
			}).Draw(t, "label")
			if len(domain)+len(sub)+1 > maxLength {
				break
			}
			domain = sub + "." + domain
		}
		return strings.ToLower(domain)
	})
}

func assertf(ok bool, format string, args ...interface{}) {
	if !ok {
		panic(fmt.Sprintf(format, args...))
	}
}
