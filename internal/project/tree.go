package project

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// SelectedBranchKey in node meta names the branch a reader follows.
const SelectedBranchKey = "selected_branch"

// ErrDuplicateScene indicates a scene id already present in the tree.
var ErrDuplicateScene = errors.New("duplicate scene id")

// Walk visits nodes depth-first (pre-order) across roots and branches.
// Returning false from fn stops the walk.
func (s *State) Walk(fn func(node *SceneNode) bool) {
	var visit func(nodes []*SceneNode) bool
	visit = func(nodes []*SceneNode) bool {
		for _, node := range nodes {
			if node == nil {
				continue
			}
			if !fn(node) {
				return false
			}
			if !visit(node.Branches) {
				return false
			}
		}
		return true
	}
	visit(s.Scenes)
}

// FindScene returns the node with id, searching the whole tree.
func (s *State) FindScene(id int) (*SceneNode, bool) {
	var found *SceneNode
	s.Walk(func(node *SceneNode) bool {
		if node.ID == id {
			found = node
			return false
		}
		return true
	})
	return found, found != nil
}

// SceneCount returns the number of nodes in the tree.
func (s *State) SceneCount() int {
	count := 0
	s.Walk(func(*SceneNode) bool {
		count++
		return true
	})
	return count
}

// NextSceneID returns one past the largest id in the tree.
func (s *State) NextSceneID() int {
	maxID := 0
	s.Walk(func(node *SceneNode) bool {
		if node.ID > maxID {
			maxID = node.ID
		}
		return true
	})
	return maxID + 1
}

// AddScene appends a root node.
func (s *State) AddScene(node *SceneNode) error {
	if node == nil {
		return errors.New("add scene: nil node")
	}
	if _, exists := s.FindScene(node.ID); exists {
		return fmt.Errorf("add scene %d: %w", node.ID, ErrDuplicateScene)
	}
	node.ParentID = nil
	s.Scenes = append(s.Scenes, node)
	return nil
}

// AddBranch attaches node as a branch of parentID.
func (s *State) AddBranch(parentID int, node *SceneNode) error {
	if node == nil {
		return errors.New("add branch: nil node")
	}
	parent, ok := s.FindScene(parentID)
	if !ok {
		return fmt.Errorf("add branch: parent scene %d not found", parentID)
	}
	if _, exists := s.FindScene(node.ID); exists {
		return fmt.Errorf("add branch %d: %w", node.ID, ErrDuplicateScene)
	}
	pid := parentID
	node.ParentID = &pid
	parent.Branches = append(parent.Branches, node)
	return nil
}

// SelectedBranch returns the branch a reader follows from node: the one
// named by meta["selected_branch"], else the first branch.
func (n *SceneNode) SelectedBranch() *SceneNode {
	if n == nil || len(n.Branches) == 0 {
		return nil
	}
	if want, ok := metaInt(n.Meta[SelectedBranchKey]); ok {
		for _, branch := range n.Branches {
			if branch != nil && branch.ID == want {
				return branch
			}
		}
	}
	return n.Branches[0]
}

// ReadingOrder returns the manuscript sequence: each root in order, followed
// by the chain of selected branches hanging from it.
func (s *State) ReadingOrder() []*SceneNode {
	var order []*SceneNode
	for _, root := range s.Scenes {
		for node := root; node != nil; node = node.SelectedBranch() {
			order = append(order, node)
		}
	}
	return order
}

func metaInt(value any) (int, bool) {
	switch v := value.(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case float64:
		return int(v), v == float64(int(v))
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(v))
		return n, err == nil
	default:
		return 0, false
	}
}

// Validate checks tree invariants: unique ids and ParentID consistency.
func (s *State) Validate() error {
	seen := make(map[int]struct{})
	var check func(nodes []*SceneNode, parent *int) error
	check = func(nodes []*SceneNode, parent *int) error {
		for _, node := range nodes {
			if node == nil {
				return errors.New("validate scenes: nil node")
			}
			if _, dup := seen[node.ID]; dup {
				return fmt.Errorf("validate scenes: %w: %d", ErrDuplicateScene, node.ID)
			}
			seen[node.ID] = struct{}{}
			switch {
			case parent == nil && node.ParentID != nil:
				return fmt.Errorf("validate scenes: root scene %d has parent %d", node.ID, *node.ParentID)
			case parent != nil && (node.ParentID == nil || *node.ParentID != *parent):
				return fmt.Errorf("validate scenes: scene %d is a branch of %d but records a different parent", node.ID, *parent)
			}
			id := node.ID
			if err := check(node.Branches, &id); err != nil {
				return err
			}
		}
		return nil
	}
	if err := check(s.Scenes, nil); err != nil {
		return err
	}
	if s.ArchiveDepth < 0 {
		return fmt.Errorf("validate state: negative archive depth %d", s.ArchiveDepth)
	}
	return nil
}
