package query

import (
	"iter"
	"maps"

	"github.com/chriszhao1988/iroha/internal/model"
	"github.com/chriszhao1988/iroha/internal/wsv"
)

// Context is the binding environment of one expression evaluation. It
// holds name bindings and a read-only registry snapshot for embedded
// queries. Build one per evaluation with NewContext; never share it.
type Context struct {
	values map[string]model.Value
	view   wsv.TriggerReader
	exec   *Executor
}

// NewContext returns an empty context over view.
func NewContext(exec *Executor, view wsv.TriggerReader) *Context {
	return &Context{
		values: make(map[string]model.Value),
		view:   view,
		exec:   exec,
	}
}

// Get returns the value bound to name.
func (c *Context) Get(name string) (model.Value, bool) {
	v, ok := c.values[name]
	return v, ok
}

// Update merges bindings, overwriting names already bound.
func (c *Context) Update(bindings iter.Seq2[string, model.Value]) {
	for k, v := range bindings {
		c.values[k] = v
	}
}

// Query runs q against the held snapshot.
func (c *Context) Query(q model.Query) (model.Value, error) {
	return c.exec.Execute(q, c.view)
}

// Clone returns a context with a copy of the bindings over the same view.
func (c *Context) Clone() model.EvaluationContext {
	return &Context{values: maps.Clone(c.values), view: c.view, exec: c.exec}
}

var _ model.EvaluationContext = (*Context)(nil)
