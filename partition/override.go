// Copyright 2024 The Erigon Authors
// This file is part of Erigon.
//
// Erigon is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// Erigon is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with Erigon. If not, see <http://www.gnu.org/licenses/>.

package partition

// NamespaceOverride wraps a Template scoped to a namespace. A distinct type
// from TableOverride so a namespace-level value cannot be miswired as a
// table-level one (§3). The zero value represents "no override".
type NamespaceOverride struct {
	template *Template
}

// NewNamespaceOverride wraps t as a namespace-level override.
func NewNamespaceOverride(t Template) NamespaceOverride {
	return NamespaceOverride{template: &t}
}

// HasOverride reports whether a namespace-level template was set.
func (n NamespaceOverride) HasOverride() bool { return n.template != nil }

// TableOverride wraps a Template scoped to a table. A distinct type from
// NamespaceOverride (§3). The zero value represents "no override".
type TableOverride struct {
	template *Template
}

// NewTableOverride wraps t as a table-level override.
func NewTableOverride(t Template) TableOverride {
	return TableOverride{template: &t}
}

// HasOverride reports whether a table-level template was set.
func (tb TableOverride) HasOverride() bool { return tb.template != nil }

// Resolve applies the §3 resolution precedence: table override, else
// namespace override, else the process-wide Default template.
func Resolve(table TableOverride, namespace NamespaceOverride) Template {
	if table.template != nil {
		return *table.template
	}
	if namespace.template != nil {
		return *namespace.template
	}
	return Default
}
