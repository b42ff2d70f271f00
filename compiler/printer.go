package compiler

import (
	"fmt"
	"strconv"
	"strings"
)

// Print renders a node as a parenthesized prefix form, e.g.
// `(+ 1 (* 2 3))`. Statements use their keyword as the head:
// `(var x 1)`, `(while true (block ...))`.
func Print(node Node) string {
	var b strings.Builder
	printNode(&b, node)
	return b.String()
}

// PrintProgram renders each statement on its own line.
func PrintProgram(stmts []Stmt) string {
	var b strings.Builder
	for _, stmt := range stmts {
		printNode(&b, stmt)
		b.WriteByte('\n')
	}
	return b.String()
}

func parenthesize(b *strings.Builder, head string, parts ...Node) {
	b.WriteByte('(')
	b.WriteString(head)
	for _, part := range parts {
		b.WriteByte(' ')
		printNode(b, part)
	}
	b.WriteByte(')')
}

func printLiteral(v any) string {
	switch v := v.(type) {
	case nil:
		return "nil"
	case bool:
		return strconv.FormatBool(v)
	case float64:
		return strconv.FormatFloat(v, 'g', -1, 64)
	case string:
		return strconv.Quote(v)
	}
	return fmt.Sprint(v)
}

func printParams(params []Token) string {
	names := make([]string, len(params))
	for i, p := range params {
		names[i] = p.Lexeme
	}
	return "(" + strings.Join(names, " ") + ")"
}

func printBody(b *strings.Builder, body []Stmt) {
	for _, stmt := range body {
		b.WriteByte(' ')
		printNode(b, stmt)
	}
}

func printNode(b *strings.Builder, node Node) {
	switch n := node.(type) {
	case *Literal:
		b.WriteString(printLiteral(n.Value))
	case *Grouping:
		parenthesize(b, "group", n.Expression)
	case *Unary:
		parenthesize(b, n.Operator.Lexeme, n.Right)
	case *Binary:
		parenthesize(b, n.Operator.Lexeme, n.Left, n.Right)
	case *Logical:
		parenthesize(b, n.Operator.Lexeme, n.Left, n.Right)
	case *Variable:
		b.WriteString(n.Name.Lexeme)
	case *Assign:
		parenthesize(b, "= "+n.Name.Lexeme, n.Value)
	case *Call:
		parts := append([]Node{n.Callee}, exprNodes(n.Arguments)...)
		parenthesize(b, "call", parts...)
	case *Get:
		parenthesize(b, "."+n.Name.Lexeme, n.Object)
	case *Set:
		parenthesize(b, "="+n.Name.Lexeme, n.Object, n.Value)
	case *This:
		b.WriteString("this")
	case *Super:
		b.WriteString("super." + n.Method.Lexeme)
	case *Lambda:
		b.WriteString("(fun " + printParams(n.Params))
		printBody(b, n.Body)
		b.WriteByte(')')

	case *ExprStmt:
		parenthesize(b, ";", n.Expr)
	case *PrintStmt:
		parenthesize(b, "print", n.Expr)
	case *VarStmt:
		if n.Initializer == nil {
			b.WriteString("(var " + n.Name.Lexeme + ")")
			return
		}
		parenthesize(b, "var "+n.Name.Lexeme, n.Initializer)
	case *BlockStmt:
		b.WriteString("(block")
		printBody(b, n.Statements)
		b.WriteByte(')')
	case *IfStmt:
		if n.Else == nil {
			parenthesize(b, "if", n.Condition, n.Then)
			return
		}
		parenthesize(b, "if-else", n.Condition, n.Then, n.Else)
	case *WhileStmt:
		if n.Increment == nil {
			parenthesize(b, "while", n.Condition, n.Body)
			return
		}
		parenthesize(b, "while", n.Condition, n.Body, n.Increment)
	case *FunctionStmt:
		b.WriteString("(fun " + n.Name.Lexeme + printParams(n.Params))
		printBody(b, n.Body)
		b.WriteByte(')')
	case *ReturnStmt:
		if n.Value == nil {
			b.WriteString("(return)")
			return
		}
		parenthesize(b, "return", n.Value)
	case *ClassStmt:
		b.WriteString("(class " + n.Name.Lexeme)
		if n.Superclass != nil {
			b.WriteString(" < " + n.Superclass.Name.Lexeme)
		}
		for _, m := range n.Methods {
			b.WriteByte(' ')
			printNode(b, m)
		}
		b.WriteByte(')')
	case *BreakStmt:
		b.WriteString("(break)")
	case *ContinueStmt:
		b.WriteString("(continue)")
	default:
		fmt.Fprintf(b, "<%T>", node)
	}
}

func exprNodes(exprs []Expr) []Node {
	nodes := make([]Node, len(exprs))
	for i, e := range exprs {
		nodes[i] = e
	}
	return nodes
}
