package ast

// Inspect traverses the tree rooted at n in depth-first order, calling f for
// each node. If f returns false the children of that node are skipped.
func Inspect(n Node, f func(Node) bool) {
	if n == nil || !f(n) {
		return
	}
	switch node := n.(type) {
	case *Object:
		if node.Code != nil {
			Inspect(node.Code, f)
		}
		for _, d := range node.Data {
			Inspect(d, f)
		}
		for _, child := range node.Children {
			Inspect(child, f)
		}
	case *Function:
		for _, p := range node.Params {
			Inspect(p, f)
		}
		for _, r := range node.Returns {
			Inspect(r, f)
		}
		if node.Body != nil {
			Inspect(node.Body, f)
		}
	case *Block:
		for _, s := range node.Statements {
			Inspect(s, f)
		}
	case *VariableDeclaration:
		for _, v := range node.Vars {
			Inspect(v, f)
		}
		if node.Init != nil {
			Inspect(node.Init, f)
		}
	case *Assignment:
		for _, t := range node.Targets {
			Inspect(t, f)
		}
		Inspect(node.Value, f)
	case *If:
		Inspect(node.Cond, f)
		Inspect(node.Body, f)
	case *Switch:
		Inspect(node.Scrutinee, f)
		for _, c := range node.Cases {
			Inspect(c.Value, f)
			Inspect(c.Body, f)
		}
		if node.Default != nil {
			Inspect(node.Default, f)
		}
	case *ForLoop:
		Inspect(node.Init, f)
		Inspect(node.Cond, f)
		Inspect(node.Post, f)
		Inspect(node.Body, f)
	case *ExpressionStatement:
		Inspect(node.Expr, f)
	case *FunctionCall:
		Inspect(node.Callee, f)
		for _, a := range node.Args {
			Inspect(a, f)
		}
	}
}

// InspectAll applies Inspect to every item of the unit.
func InspectAll(unit *AST, f func(Node) bool) {
	for _, item := range unit.Items {
		Inspect(item, f)
	}
}

// CountNodes returns the number of nodes in the tree rooted at n.
func CountNodes(n Node) int {
	count := 0
	Inspect(n, func(Node) bool {
		count++
		return true
	})
	return count
}

// CountAll returns the node count of the whole unit.
func CountAll(unit *AST) int {
	count := 0
	for _, item := range unit.Items {
		count += CountNodes(item)
	}
	return count
}
