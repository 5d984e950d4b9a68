package drive

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"drive-go/internal/model"
)

// Tokenize lowercases s and splits it into runs of letters and digits.
func Tokenize(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// SearchText is the indexed form of a name: its tokens, each preceded by a
// space, so that a prefix match on a word is a match on " "+term.
func SearchText(name string) string {
	var b strings.Builder
	for _, tok := range Tokenize(name) {
		b.WriteByte(' ')
		b.WriteString(tok)
	}
	return b.String()
}

// SearchResult holds independently paged file and folder matches.
type SearchResult struct {
	Files   []*model.File   `json:"files"`
	Folders []*model.Folder `json:"folders"`
}

// Search finds the actor's active files and folders whose names contain a
// word starting with every term of query. When folderID is set only its
// direct children are searched; otherwise the whole owned tree is. The page
// applies to files and folders separately.
func (s *DriveService) Search(ctx context.Context, actor Actor, query string, folderID *string, page Page) (_ *SearchResult, err error) {
	defer observe("search", &err)

	if err := requireUser(actor); err != nil {
		return nil, err
	}
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("%w: search query is required", ErrBadRequest)
	}
	terms := Tokenize(query)
	if len(terms) == 0 {
		return nil, fmt.Errorf("%w: search query has no searchable words", ErrBadRequest)
	}

	if page.Limit <= 0 {
		page.Limit = s.opts.DefaultSearchLimit
	}
	q, err := s.listScope(ctx, actor, folderID, page)
	if err != nil {
		return nil, err
	}
	q.Terms = terms
	q.AnyParent = folderID == nil

	files, err := s.database.ListFiles(ctx, q)
	if err != nil {
		return nil, upstream("searching files", err)
	}
	folders, err := s.database.ListFolders(ctx, q)
	if err != nil {
		return nil, upstream("searching folders", err)
	}
	return &SearchResult{Files: files, Folders: folders}, nil
}
