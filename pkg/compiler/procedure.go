package compiler

import (
	"regexp"

	"github.com/leapstack-labs/leapquery/pkg/core"
	"github.com/leapstack-labs/leapquery/pkg/expr"
)

var paramNameRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// ---------- Stored procedures ----------

func (p *printer) formatProcedure(c *core.ProcedureCall) {
	if p.dialect.Procedures == core.ProceduresUnsupported {
		p.unsupported("stored procedures")
		return
	}
	if c.Name == "" {
		p.fail(&core.InvalidOperandError{Builder: "CallProcedure", Reason: "missing procedure name"})
		return
	}
	for _, param := range c.Params {
		if !paramNameRe.MatchString(param.Name) {
			p.fail(&core.InvalidOperandError{Builder: "CallProcedure", Reason: "invalid parameter name " + `"` + param.Name + `"`})
			return
		}
		if param.Direction != core.ParamOut && param.Value == nil {
			p.fail(&core.InvalidOperandError{Builder: "CallProcedure", Reason: "parameter " + param.Name + " needs a value"})
			return
		}
	}

	var outputs []string
	for _, param := range c.Params {
		if param.IsOutput() {
			outputs = append(outputs, param.Name)
		}
	}

	switch p.dialect.Procedures {
	case core.ProceduresCall:
		p.formatCall(c)
		if len(outputs) > 0 {
			p.outParams = &core.OutParams{Source: core.FirstResultSet, Names: outputs}
		}
	case core.ProceduresSessionVars:
		p.formatSessionVarCall(c, outputs)
		if len(outputs) > 0 {
			p.outParams = &core.OutParams{Source: core.LastResultSet, Names: outputs}
		}
	case core.ProceduresExec:
		p.formatExec(c, outputs)
		if len(outputs) > 0 {
			p.outParams = &core.OutParams{Source: core.LastResultSet, Names: outputs}
		}
	}
}

// formatCall renders CALL proc(...). OUT arguments are passed as NULL and
// the procedure returns their values as a single row.
func (p *printer) formatCall(c *core.ProcedureCall) {
	p.write("CALL ")
	p.qualified(c.Schema, c.Name)
	p.write("(")
	p.formatList(len(c.Params), func(i int) {
		param := c.Params[i]
		if param.Direction == core.ParamOut {
			p.write("NULL")
			return
		}
		p.formatExpr(param.Value)
	}, ", ")
	p.write(")")
}

// formatSessionVarCall binds OUT/INOUT arguments to session variables and
// reads them back with a trailing SELECT:
//
//	SET @_p_x = ?; CALL proc(?, @_p_x, @_p_y); SELECT @_p_x AS `x`, @_p_y AS `y`
func (p *printer) formatSessionVarCall(c *core.ProcedureCall, outputs []string) {
	for _, param := range c.Params {
		if param.Direction == core.ParamInOut {
			p.write("SET " + sessionVar(param.Name) + " = ")
			p.formatExpr(param.Value)
			p.write("; ")
		}
	}
	p.write("CALL ")
	p.qualified(c.Schema, c.Name)
	p.write("(")
	p.formatList(len(c.Params), func(i int) {
		param := c.Params[i]
		if param.IsOutput() {
			p.write(sessionVar(param.Name))
			return
		}
		p.formatExpr(param.Value)
	}, ", ")
	p.write(")")
	if len(outputs) == 0 {
		return
	}
	p.write("; SELECT ")
	p.formatList(len(outputs), func(i int) {
		p.write(sessionVar(outputs[i]) + " AS ")
		p.ident(outputs[i])
	}, ", ")
}

func sessionVar(name string) string {
	return "@_p_" + name
}

// formatExec declares typed output variables, runs EXEC with named
// arguments and selects the variables back:
//
//	DECLARE @_p_y INT; EXEC [proc] @x = @p1, @y = @_p_y OUTPUT; SELECT @_p_y AS [y];
func (p *printer) formatExec(c *core.ProcedureCall, outputs []string) {
	for _, param := range c.Params {
		if !param.IsOutput() {
			continue
		}
		if param.DbType == "" {
			p.fail(&core.MissingDbTypeError{Dialect: p.dialect.Name, Param: param.Name})
			return
		}
		if !expr.ValidTypeName(param.DbType) {
			p.fail(&core.InvalidOperandError{Builder: "CallProcedure", Reason: "invalid dbType " + `"` + param.DbType + `"`})
			return
		}
		p.write("DECLARE " + sessionVar(param.Name) + " " + param.DbType)
		if param.Direction == core.ParamInOut {
			p.write(" = ")
			p.formatExpr(param.Value)
		}
		p.write("; ")
	}
	p.write("EXEC ")
	p.qualified(c.Schema, c.Name)
	if len(c.Params) > 0 {
		p.space()
	}
	p.formatList(len(c.Params), func(i int) {
		param := c.Params[i]
		p.write("@" + param.Name + " = ")
		if param.IsOutput() {
			p.write(sessionVar(param.Name) + " OUTPUT")
			return
		}
		p.formatExpr(param.Value)
	}, ", ")
	if len(outputs) > 0 {
		p.write("; SELECT ")
		p.formatList(len(outputs), func(i int) {
			p.write(sessionVar(outputs[i]) + " AS ")
			p.ident(outputs[i])
		}, ", ")
	}
	p.write(";")
}

// ---------- CREATE INDEX ----------

func (p *printer) formatCreateIndex(ci *core.CreateIndex) {
	if ci.Table == nil || ci.Name == "" || len(ci.Columns) == 0 {
		p.fail(&core.InvalidOperandError{Builder: "CreateIndex", Reason: "an index needs a name, a table and columns"})
		return
	}
	if ci.Where != nil && !p.dialect.SupportsPartialIndexes {
		p.unsupported("partial indexes")
		return
	}
	p.write("CREATE ")
	if ci.Unique {
		p.write("UNIQUE ")
	}
	p.write("INDEX ")
	p.ident(ci.Name)
	p.write(" ON ")
	p.qualified(ci.Table.Schema, ci.Table.Name)
	p.write(" (")
	p.identList(ci.Columns)
	p.write(")")
	if ci.Where != nil {
		p.write(" WHERE ")
		p.inline = true
		p.formatExpr(ci.Where)
		p.inline = false
	}
}
