package overlay

import (
	"fmt"
	"io"

	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"

	"github.com/hazyhaar/pdfbundle/geometry"
)

// formPrefix names the XObject resources this package adds to pages.
const formPrefix = "PbOvl"

// form is an overlay page turned into a reusable form XObject.
type form struct {
	ref types.IndirectRef
	// geom is the upright size of the form, origin at (0, 0).
	geom geometry.Page
}

// newForm wraps page pageNr of ctx (content + resources) into a form XObject
// living in the same cross-reference table. The page's crop box clips the
// form and its /Rotate is undone by the form matrix, so the form always
// draws upright from the origin.
func newForm(ctx *model.Context, pageNr int) (*form, error) {
	d, _, inh, err := ctx.PageDict(pageNr, false)
	if err != nil {
		return nil, err
	}
	if d == nil || inh == nil || inh.MediaBox == nil {
		return nil, fmt.Errorf("overlay page %d: no media box", pageNr)
	}
	box := inh.MediaBox
	if inh.CropBox != nil {
		box = inh.CropBox
	}
	rot := inh.Rotate
	if r := d.IntEntry("Rotate"); r != nil {
		rot = *r
	}
	page := geometry.Page{Width: box.Width(), Height: box.Height(), Rotation: rot}
	if err := page.Validate(); err != nil {
		return nil, fmt.Errorf("overlay page %d: %w", pageNr, err)
	}
	m := geometry.Translate(-box.LL.X, -box.LL.Y).Multiply(geometry.Upright(page))

	var content []byte
	r, err := pdfcpu.ExtractPageContent(ctx, pageNr)
	if err != nil {
		return nil, fmt.Errorf("overlay page %d content: %w", pageNr, err)
	}
	if r != nil {
		if content, err = io.ReadAll(r); err != nil {
			return nil, fmt.Errorf("overlay page %d content: %w", pageNr, err)
		}
	}

	res, err := pageResources(ctx, d, inh)
	if err != nil {
		return nil, err
	}

	sd, err := ctx.NewStreamDictForBuf(content)
	if err != nil {
		return nil, err
	}
	sd.InsertName("Type", "XObject")
	sd.InsertName("Subtype", "Form")
	sd.Insert("BBox", types.Array{
		types.Float(box.LL.X), types.Float(box.LL.Y),
		types.Float(box.UR.X), types.Float(box.UR.Y),
	})
	sd.Insert("Matrix", types.Array{
		types.Float(m.A), types.Float(m.B), types.Float(m.C),
		types.Float(m.D), types.Float(m.E), types.Float(m.F),
	})
	if res != nil {
		sd.Insert("Resources", res)
	}
	if err := sd.Encode(); err != nil {
		return nil, fmt.Errorf("encode form: %w", err)
	}
	ref, err := ctx.IndRefForNewObject(*sd)
	if err != nil {
		return nil, err
	}

	return &form{ref: *ref, geom: page.Visual()}, nil
}

// stampPage registers f as an XObject of pageNr and restacks the page's
// content streams so the form is drawn behind or in front of it:
//
//	ZBehind: [draw q] original... [Q]
//	ZFront:  [q] original... [Q draw]
//
// The original content is wrapped in q/Q so its graphics state cannot leak
// into the overlay and vice versa.
func stampPage(ctx *model.Context, pageNr int, f types.IndirectRef, m geometry.Matrix, z ZOrder) error {
	d, _, inh, err := ctx.PageDict(pageNr, false)
	if err != nil {
		return err
	}

	res, err := pageResources(ctx, d, inh)
	if err != nil {
		return err
	}
	res = cloneDict(res)

	var xobj types.Dict
	if o, found := res.Find("XObject"); found {
		if xobj, err = ctx.DereferenceDict(o); err != nil {
			return fmt.Errorf("page XObjects: %w", err)
		}
	}
	xobj = cloneDict(xobj)
	name := freeName(xobj)
	xobj[name] = f
	res["XObject"] = xobj
	d["Resources"] = res

	original, err := contentRefs(ctx, d)
	if err != nil {
		return err
	}

	draw := "q\n" + m.Operand() + " cm\n/" + name + " Do\nQ\n"
	var before, after string
	switch z {
	case ZFront:
		before, after = "q\n", "\nQ\n"+draw
	default:
		before, after = draw+"q\n", "\nQ\n"
	}

	pre, err := newContent(ctx, before)
	if err != nil {
		return err
	}
	post, err := newContent(ctx, after)
	if err != nil {
		return err
	}

	contents := make(types.Array, 0, len(original)+2)
	contents = append(contents, pre)
	contents = append(contents, original...)
	contents = append(contents, post)
	d["Contents"] = contents
	return nil
}

// pageResources returns the effective resource dict of a page: its own, or
// the one inherited from the page tree.
func pageResources(ctx *model.Context, d types.Dict, inh *model.InheritedPageAttrs) (types.Dict, error) {
	if o, found := d.Find("Resources"); found && o != nil {
		res, err := ctx.DereferenceDict(o)
		if err != nil {
			return nil, fmt.Errorf("page resources: %w", err)
		}
		return res, nil
	}
	if inh != nil && inh.Resources != nil {
		return inh.Resources, nil
	}
	return types.Dict{}, nil
}

// contentRefs lists the page's content streams as array elements.
func contentRefs(ctx *model.Context, d types.Dict) (types.Array, error) {
	o, found := d.Find("Contents")
	if !found || o == nil {
		return nil, nil
	}
	switch v := o.(type) {
	case types.IndirectRef:
		obj, err := ctx.Dereference(v)
		if err != nil {
			return nil, fmt.Errorf("page contents: %w", err)
		}
		if arr, ok := obj.(types.Array); ok {
			return arr, nil
		}
		return types.Array{v}, nil
	case *types.IndirectRef:
		return contentRefs(ctx, types.Dict{"Contents": *v})
	case types.Array:
		return v, nil
	}
	return nil, fmt.Errorf("unexpected /Contents type %T", o)
}

func newContent(ctx *model.Context, ops string) (types.IndirectRef, error) {
	sd, err := ctx.NewStreamDictForBuf([]byte(ops))
	if err != nil {
		return types.IndirectRef{}, err
	}
	if err := sd.Encode(); err != nil {
		return types.IndirectRef{}, fmt.Errorf("encode content: %w", err)
	}
	ref, err := ctx.IndRefForNewObject(*sd)
	if err != nil {
		return types.IndirectRef{}, err
	}
	return *ref, nil
}

func cloneDict(d types.Dict) types.Dict {
	out := make(types.Dict, len(d)+1)
	for k, v := range d {
		out[k] = v
	}
	return out
}

func freeName(xobj types.Dict) string {
	for i := 0; ; i++ {
		name := fmt.Sprintf("%s%d", formPrefix, i)
		if _, taken := xobj[name]; !taken {
			return name
		}
	}
}
