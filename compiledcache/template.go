package compiledcache

import (
	"github.com/bufrgo/bufrcore/descriptor"
	"github.com/bufrgo/bufrcore/table"
)

// CompiledTemplate is the resolved descriptor tree for one
// (descriptor_ids, table_group_key) pair, ready to hand to coder.Walker.
type CompiledTemplate struct {
	DescriptorIDs []descriptor.ID         `json:"descriptor_ids"`
	GroupKey      table.Key               `json:"group_key"`
	Members       []*descriptor.Descriptor `json:"members"`
}

// Compile resolves ids against group and wraps the result. It does the
// same work table.Group.DescriptorsFromIDs always does; the cache in this
// package is what makes repeating it unnecessary.
func Compile(group *table.Group, ids []descriptor.ID) (*CompiledTemplate, error) {
	members, err := group.DescriptorsFromIDs(ids)
	if err != nil {
		return nil, err
	}

	idsCopy := make([]descriptor.ID, len(ids))
	copy(idsCopy, ids)

	return &CompiledTemplate{
		DescriptorIDs: idsCopy,
		GroupKey:      group.Key,
		Members:       members,
	}, nil
}
