package menu

import (
	"errors"
	"fmt"
	"strings"
)

// Tree is the immutable conversation graph, loaded once at process
// start and safely shared by any number of concurrent requests.
//
// Lookup failures are configuration errors: the engine renders a
// generic apology and logs for operators, it never crashes the request.

type Tree struct {
	root  string
	nodes map[string]*Node
}

var ErrNodeNotFound = errors.New("menu: node not found")

// NewTree builds and validates a tree from a root key and node list.
//
// Validation enforces:
// - root exists
// - node keys are unique and non-empty
// - every transition target resolves to a defined node
// - menu nodes carry at least one option with unique selectors
// - input nodes carry a target and a compilable rule
// - action nodes carry an action key plus success and failure targets
// - every node is reachable from the root
//
// knownActions, when non-empty, restricts action keys to the
// dispatcher's registered capability set.
func NewTree(root string, nodes []Node, knownActions []string) (*Tree, error) {
	if strings.TrimSpace(root) == "" {
		return nil, errors.New("menu: root key is required")
	}

	byKey := make(map[string]*Node, len(nodes))
	for i := range nodes {
		n := nodes[i]
		if strings.TrimSpace(n.Key) == "" {
			return nil, fmt.Errorf("menu: node %d has empty key", i)
		}
		if _, dup := byKey[n.Key]; dup {
			return nil, fmt.Errorf("menu: duplicate node key %q", n.Key)
		}
		byKey[n.Key] = &nodes[i]
	}

	t := &Tree{root: root, nodes: byKey}
	if err := t.validate(knownActions); err != nil {
		return nil, err
	}
	return t, nil
}

// Root returns the key of the entry node.
func (t *Tree) Root() string { return t.root }

// Node resolves a node by key.
func (t *Tree) Node(key string) (Node, error) {
	n, ok := t.nodes[key]
	if !ok {
		return Node{}, fmt.Errorf("%w: %q", ErrNodeNotFound, key)
	}
	return *n, nil
}

// Len reports the number of defined nodes.
func (t *Tree) Len() int { return len(t.nodes) }

func (t *Tree) validate(knownActions []string) error {
	if _, ok := t.nodes[t.root]; !ok {
		return fmt.Errorf("menu: root node %q is not defined", t.root)
	}

	actionSet := map[string]bool{}
	for _, k := range knownActions {
		actionSet[k] = true
	}

	var errs []error
	for key, n := range t.nodes {
		switch n.Kind {
		case KindMenu:
			if len(n.Options) == 0 {
				errs = append(errs, fmt.Errorf("menu: node %q has no options", key))
			}
			seen := map[string]bool{}
			for _, opt := range n.Options {
				if opt.Selector == "" {
					errs = append(errs, fmt.Errorf("menu: node %q has an option with empty selector", key))
				}
				if seen[opt.Selector] {
					errs = append(errs, fmt.Errorf("menu: node %q repeats selector %q", key, opt.Selector))
				}
				seen[opt.Selector] = true
				if _, ok := t.nodes[opt.Target]; !ok {
					errs = append(errs, fmt.Errorf("menu: node %q option %q targets undefined node %q", key, opt.Selector, opt.Target))
				}
			}
		case KindInput:
			if n.Target == "" {
				errs = append(errs, fmt.Errorf("menu: input node %q has no target", key))
			} else if _, ok := t.nodes[n.Target]; !ok {
				errs = append(errs, fmt.Errorf("menu: input node %q targets undefined node %q", key, n.Target))
			}
			if err := n.Rule.compile(); err != nil {
				errs = append(errs, fmt.Errorf("menu: input node %q: %w", key, err))
			}
		case KindAction:
			if n.ActionKey == "" {
				errs = append(errs, fmt.Errorf("menu: action node %q has no action key", key))
			} else if len(actionSet) > 0 && !actionSet[n.ActionKey] {
				errs = append(errs, fmt.Errorf("menu: action node %q references unknown action %q", key, n.ActionKey))
			}
			if n.OnSuccess == "" || n.OnFailure == "" {
				errs = append(errs, fmt.Errorf("menu: action node %q must declare success and failure targets", key))
			}
			if n.OnSuccess != "" {
				if _, ok := t.nodes[n.OnSuccess]; !ok {
					errs = append(errs, fmt.Errorf("menu: action node %q success targets undefined node %q", key, n.OnSuccess))
				}
			}
			if n.OnFailure != "" {
				if _, ok := t.nodes[n.OnFailure]; !ok {
					errs = append(errs, fmt.Errorf("menu: action node %q failure targets undefined node %q", key, n.OnFailure))
				}
			}
		case KindTerminal:
			if strings.TrimSpace(n.Prompt) == "" {
				errs = append(errs, fmt.Errorf("menu: terminal node %q has no prompt", key))
			}
		default:
			errs = append(errs, fmt.Errorf("menu: node %q has unknown kind %q", key, n.Kind))
		}
	}
	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	// Reachability sweep from the root.
	reached := map[string]bool{}
	stack := []string{t.root}
	for len(stack) > 0 {
		key := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if reached[key] {
			continue
		}
		reached[key] = true
		n := t.nodes[key]
		for _, opt := range n.Options {
			stack = append(stack, opt.Target)
		}
		if n.Target != "" {
			stack = append(stack, n.Target)
		}
		if n.OnSuccess != "" {
			stack = append(stack, n.OnSuccess)
		}
		if n.OnFailure != "" {
			stack = append(stack, n.OnFailure)
		}
	}
	for key := range t.nodes {
		if !reached[key] {
			errs = append(errs, fmt.Errorf("menu: node %q is unreachable from root", key))
		}
	}
	return errors.Join(errs...)
}
