// Package gitctx is a thin layer over go-git: repository discovery, base
// branch detection, commit walks, and change-set computation. All reported
// paths are relative to the repository root.
package gitctx

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// ErrNoRepository marks targets without a repository control directory.
var ErrNoRepository = errors.New("no git repository")

// baseCandidates is the detection order for the comparison base.
var baseCandidates = []string{"main", "master"}

// Commit is one commit between HEAD and the base, with its
// conventional-commit parse and changed files.
type Commit struct {
	SHA     string
	Subject string
	Type    string // conventional-commit type, "" when the subject does not parse
	Scope   string
	Files   []string
}

// IsFeature reports whether the commit is feature-class for docs/area rules.
func (c Commit) IsFeature() bool { return c.Type == "feat" }

var conventionalRe = regexp.MustCompile(`^(\w+)(?:\(([^)]*)\))?!?:\s+\S`)

// Context wraps an opened repository.
type Context struct {
	repo    *git.Repository
	BaseRef string
}

// Open discovers the repository containing target. Returns ErrNoRepository
// when there is none; CI-mode checks surface that as check_setup_failed.
func Open(target string) (*Context, error) {
	repo, err := git.PlainOpenWithOptions(target, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoRepository, err)
	}
	return &Context{repo: repo}, nil
}

// resolveBase finds the comparison base: the configured ref if given,
// otherwise main, master, or their origin equivalents.
func (c *Context) resolveBase(configured string) (*object.Commit, error) {
	var names []plumbing.ReferenceName
	if configured != "" {
		names = append(names,
			plumbing.NewBranchReferenceName(configured),
			plumbing.NewRemoteReferenceName("origin", configured))
	} else {
		for _, cand := range baseCandidates {
			names = append(names, plumbing.NewBranchReferenceName(cand))
		}
		for _, cand := range baseCandidates {
			names = append(names, plumbing.NewRemoteReferenceName("origin", cand))
		}
	}
	for _, name := range names {
		ref, err := c.repo.Reference(name, true)
		if err != nil {
			continue
		}
		commit, err := c.repo.CommitObject(ref.Hash())
		if err != nil {
			continue
		}
		c.BaseRef = name.Short()
		return commit, nil
	}
	tried := make([]string, 0, len(names))
	for _, name := range names {
		tried = append(tried, name.Short())
	}
	return nil, fmt.Errorf("no base branch found (tried %s)", strings.Join(tried, ", "))
}

func (c *Context) head() (*object.Commit, error) {
	ref, err := c.repo.Head()
	if err != nil {
		return nil, err
	}
	return c.repo.CommitObject(ref.Hash())
}

// CommitsSinceBase walks from HEAD down to the merge base with the
// configured (or detected) base branch, newest first. On the base branch
// itself the walk is empty.
func (c *Context) CommitsSinceBase(configuredBase string) ([]Commit, error) {
	head, err := c.head()
	if err != nil {
		return nil, err
	}
	base, err := c.resolveBase(configuredBase)
	if err != nil {
		return nil, err
	}
	stop := base.Hash
	if mb, err := head.MergeBase(base); err == nil && len(mb) > 0 {
		stop = mb[0].Hash
	}

	var commits []Commit
	iter, err := c.repo.Log(&git.LogOptions{From: head.Hash})
	if err != nil {
		return nil, err
	}
	defer iter.Close()
	for {
		commit, err := iter.Next()
		if err != nil {
			break
		}
		if commit.Hash == stop {
			break
		}
		entry := Commit{
			SHA:     commit.Hash.String(),
			Subject: firstLine(commit.Message),
		}
		if m := conventionalRe.FindStringSubmatch(entry.Subject); m != nil {
			entry.Type = m[1]
			entry.Scope = m[2]
		}
		files, err := commitChanges(commit)
		if err == nil {
			entry.Files = files
		}
		commits = append(commits, entry)
	}
	return commits, nil
}

// commitChanges diffs a commit against its first parent. The initial commit
// is diffed against the empty tree, which reports every file as added.
func commitChanges(commit *object.Commit) ([]string, error) {
	tree, err := commit.Tree()
	if err != nil {
		return nil, err
	}
	if commit.NumParents() == 0 {
		var files []string
		err := tree.Files().ForEach(func(f *object.File) error {
			files = append(files, f.Name)
			return nil
		})
		if err != nil {
			return nil, err
		}
		sort.Strings(files)
		return files, nil
	}
	parent, err := commit.Parent(0)
	if err != nil {
		return nil, err
	}
	parentTree, err := parent.Tree()
	if err != nil {
		return nil, err
	}
	changes, err := object.DiffTree(parentTree, tree)
	if err != nil {
		return nil, err
	}
	return changePaths(changes), nil
}

// changePaths applies the single path rule that covers add, modify, rename,
// copy, and delete: the new path when present, the old path otherwise.
func changePaths(changes object.Changes) []string {
	seen := make(map[string]struct{}, len(changes))
	for _, change := range changes {
		path := change.To.Name
		if path == "" {
			path = change.From.Name
		}
		if path != "" {
			seen[path] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for path := range seen {
		out = append(out, path)
	}
	sort.Strings(out)
	return out
}

// CommittedChanges diffs HEAD against the merge base with the base branch.
func (c *Context) CommittedChanges(configuredBase string) ([]string, error) {
	head, err := c.head()
	if err != nil {
		return nil, err
	}
	base, err := c.resolveBase(configuredBase)
	if err != nil {
		return nil, err
	}
	stop := base
	if mb, err := head.MergeBase(base); err == nil && len(mb) > 0 {
		stop = mb[0]
	}
	headTree, err := head.Tree()
	if err != nil {
		return nil, err
	}
	stopTree, err := stop.Tree()
	if err != nil {
		return nil, err
	}
	changes, err := object.DiffTree(stopTree, headTree)
	if err != nil {
		return nil, err
	}
	return changePaths(changes), nil
}

// WorktreeChanges returns the staged (index) and unstaged (workdir) change
// sets from the repository status.
func (c *Context) WorktreeChanges() (staged, unstaged []string, err error) {
	wt, err := c.repo.Worktree()
	if err != nil {
		return nil, nil, err
	}
	status, err := wt.Status()
	if err != nil {
		return nil, nil, err
	}
	for path, s := range status {
		if s.Staging != git.Unmodified && s.Staging != git.Untracked {
			staged = append(staged, path)
		}
		if s.Worktree != git.Unmodified {
			unstaged = append(unstaged, path)
		}
	}
	sort.Strings(staged)
	sort.Strings(unstaged)
	return staged, unstaged, nil
}

// ChangedFiles unions the committed, staged, and unstaged change sets.
func (c *Context) ChangedFiles(configuredBase string) ([]string, error) {
	committed, err := c.CommittedChanges(configuredBase)
	if err != nil {
		return nil, err
	}
	staged, unstaged, err := c.WorktreeChanges()
	if err != nil {
		return nil, err
	}
	seen := make(map[string]struct{})
	for _, group := range [][]string{committed, staged, unstaged} {
		for _, path := range group {
			seen[path] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for path := range seen {
		out = append(out, path)
	}
	sort.Strings(out)
	return out, nil
}

func firstLine(s string) string {
	if idx := strings.IndexByte(s, '\n'); idx >= 0 {
		return strings.TrimSpace(s[:idx])
	}
	return strings.TrimSpace(s)
}
