package repo

import "fmt"

// RepoType identifies one top-level content repository in Magnolia. The set
// is closed; adding a repository means adding a table entry here.
type RepoType int

const (
	Dam RepoType = iota
	Website
	Config
	Gatoapps
	Resources
	Usergroups
	Userroles
	Users
)

// FolderNodeType tags directory nodes. Every repository shares it.
const FolderNodeType = "mgnl:folder"

// entries maps each RepoType to its lowercase string form and the node type
// of its exportable leaves.
var entries = [...]struct {
	name string
	leaf string
}{
	Dam:        {"dam", "mgnl:asset"},
	Website:    {"website", "mgnl:page"},
	Config:     {"config", "mgnl:content"},
	Gatoapps:   {"gatoapps", "mgnl:content"},
	Resources:  {"resources", "mgnl:content"},
	Usergroups: {"usergroups", "mgnl:group"},
	Userroles:  {"userroles", "mgnl:role"},
	Users:      {"users", "mgnl:user"},
}

// Parse returns the RepoType for its lowercase string form.
func Parse(s string) (RepoType, error) {
	for rt, e := range entries {
		if e.name == s {
			return RepoType(rt), nil
		}
	}
	return 0, fmt.Errorf("invalid repo type %q", s)
}

func (r RepoType) String() string {
	return entries[r].name
}

// LeafNodeType returns the node type of the repository's exportable leaves.
func (r RepoType) LeafNodeType() string {
	return entries[r].leaf
}

// All returns every registered repository type in declaration order.
func All() []RepoType {
	out := make([]RepoType, len(entries))
	for i := range entries {
		out[i] = RepoType(i)
	}
	return out
}
