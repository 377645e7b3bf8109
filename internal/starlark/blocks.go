package starlark

import (
	"fmt"

	"go.starlark.net/starlark"

	"github.com/leapstack-labs/meldbuild/pkg/core"
)

// Block is a consumable code block as seen by scripts.
type Block struct {
	block core.NamedCodeBlock
}

var _ starlark.HasAttrs = (*Block)(nil)

// NewBlock wraps b.
func NewBlock(b core.NamedCodeBlock) *Block { return &Block{block: b} }

// Unwrap returns the underlying block.
func (b *Block) Unwrap() core.NamedCodeBlock { return b.block }

func (b *Block) String() string {
	return fmt.Sprintf("block(name=%q, language=%q)", b.block.Name, b.block.Info.Language)
}
func (b *Block) Type() string          { return "block" }
func (b *Block) Freeze()               {}
func (b *Block) Truth() starlark.Bool  { return true }
func (b *Block) Hash() (uint32, error) { return starlark.String(b.block.Content).Hash() }

func (b *Block) AttrNames() []string { return []string{"content", "language", "name", "params"} }

func (b *Block) Attr(name string) (starlark.Value, error) {
	switch name {
	case "name":
		return starlark.String(b.block.Name), nil
	case "language":
		return starlark.String(b.block.Info.Language), nil
	case "content":
		return starlark.String(b.block.Content), nil
	case "params":
		params := make([]starlark.Value, len(b.block.Info.Params))
		for i, p := range b.block.Info.Params {
			params[i] = starlark.String(p)
		}
		return starlark.NewList(params), nil
	}
	return nil, nil
}

// Blocks is the live list of consumable blocks. Blocks appended to the
// underlying slice, by an include for example, are visible immediately.
type Blocks struct {
	list *[]core.NamedCodeBlock
}

var (
	_ starlark.Indexable = (*Blocks)(nil)
	_ starlark.Sequence  = (*Blocks)(nil)
	_ starlark.HasAttrs  = (*Blocks)(nil)
)

// NewBlocks wraps list.
func NewBlocks(list *[]core.NamedCodeBlock) *Blocks { return &Blocks{list: list} }

func (bs *Blocks) String() string        { return fmt.Sprintf("blocks(%d)", len(*bs.list)) }
func (bs *Blocks) Type() string          { return "blocks" }
func (bs *Blocks) Freeze()               {}
func (bs *Blocks) Truth() starlark.Bool  { return len(*bs.list) > 0 }
func (bs *Blocks) Hash() (uint32, error) { return 0, fmt.Errorf("unhashable type: blocks") }
func (bs *Blocks) Len() int              { return len(*bs.list) }
func (bs *Blocks) Index(i int) starlark.Value {
	return NewBlock((*bs.list)[i])
}

func (bs *Blocks) Iterate() starlark.Iterator {
	values := make([]starlark.Value, len(*bs.list))
	for i := range values {
		values[i] = bs.Index(i)
	}
	return &sliceIterator{values: values}
}

func (bs *Blocks) AttrNames() []string { return []string{"find"} }

// Attr provides find(name, language=None): the first block with that name
// (and language, when given), or None.
func (bs *Blocks) Attr(name string) (starlark.Value, error) {
	if name != "find" {
		return nil, nil
	}
	return starlark.NewBuiltin("find", func(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
		var blockName, language string
		if err := starlark.UnpackArgs(b.Name(), args, kwargs, "name", &blockName, "language?", &language); err != nil {
			return nil, err
		}
		for _, blk := range *bs.list {
			if blk.Name != blockName {
				continue
			}
			if language != "" && blk.Info.Language != language {
				continue
			}
			return NewBlock(blk), nil
		}
		return starlark.None, nil
	}), nil
}
