package controller

import (
	"bytes"
	"encoding/json"

	"github.com/Laisky/errors/v2"
	"github.com/jinzhu/copier"

	"github.com/Laisky/files-manager/internal/web/files/model"
)

// FileResponse is the public shape of a file record, the storage path is never exposed.
type FileResponse struct {
	ID       string `json:"id" copier:"-"`
	UserID   string `json:"userId" copier:"-"`
	Name     string `json:"name"`
	Kind     string `json:"type"`
	IsPublic bool   `json:"isPublic"`
	ParentID string `json:"parentId" copier:"-"`
}

// UserResponse is the public shape of a user.
type UserResponse struct {
	ID    string `json:"id" copier:"-"`
	Email string `json:"email"`
}

func newFileResponse(rec *model.FileRecord) (*FileResponse, error) {
	resp := new(FileResponse)
	if err := copier.Copy(resp, rec); err != nil {
		return nil, errors.Wrap(err, "copy file record")
	}

	resp.ID = rec.ID.Hex()
	resp.UserID = rec.OwnerID.Hex()
	resp.ParentID = model.FormatParentID(rec.ParentID)
	return resp, nil
}

func newFileResponses(records []*model.FileRecord) ([]*FileResponse, error) {
	out := make([]*FileResponse, 0, len(records))
	for _, rec := range records {
		resp, err := newFileResponse(rec)
		if err != nil {
			return nil, err
		}
		out = append(out, resp)
	}

	return out, nil
}

func newUserResponse(u *model.User) (*UserResponse, error) {
	resp := new(UserResponse)
	if err := copier.Copy(resp, u); err != nil {
		return nil, errors.Wrap(err, "copy user")
	}

	resp.ID = u.ID.Hex()
	return resp, nil
}

// parentRef accepts a parent id sent either as a string or as the number 0.
type parentRef string

// UnmarshalJSON implements json.Unmarshaler
func (p *parentRef) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		*p = ""
	case len(data) > 0 && data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return errors.Wrap(err, "parse parentId")
		}
		*p = parentRef(s)
	default:
		var n json.Number
		if err := json.Unmarshal(data, &n); err != nil {
			return errors.Wrap(err, "parse parentId")
		}
		*p = parentRef(n.String())
	}

	return nil
}
