package fakeapi

import (
	"encoding/json"
	"net/http"
	"sort"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/vbonduro/librarydesk/internal/domain"
)

func (s *Server) AddUser(username, password string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[username] = password
}

func (s *Server) AddMember(m domain.Member) domain.Member {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addMemberLocked(m)
}

func (s *Server) addMemberLocked(m domain.Member) domain.Member {
	if m.ID == 0 {
		s.nextMember++
		m.ID = s.nextMember
	} else if m.ID > s.nextMember {
		s.nextMember = m.ID
	}
	cp := m
	s.members[m.ID] = &cp
	return m
}

// Member returns the stored copy, including the derived borrowed count.
func (s *Server) Member(id int64) (domain.Member, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.members[id]
	if !ok {
		return domain.Member{}, false
	}
	return *m, true
}

func (s *Server) handleListMembers(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	out := make([]domain.Member, 0, len(s.members))
	for _, m := range s.members {
		out = append(out, *m)
	}
	s.mu.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })

	// The production server wraps the list; clients accept both shapes.
	writeJSON(w, http.StatusOK, map[string]any{"members": out})
}

type memberBody struct {
	ParentName string `json:"parent_name"`
	KidName    string `json:"kid_name"`
	Email      string `json:"email"`
}

func (s *Server) handleAddMember(w http.ResponseWriter, r *http.Request) {
	var body memberBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.ParentName == "" || body.KidName == "" {
		writeError(w, http.StatusBadRequest, "parent_name and kid_name are required")
		return
	}
	s.mu.Lock()
	m := s.addMemberLocked(domain.Member{ParentName: body.ParentName, KidName: body.KidName, Email: body.Email})
	s.mu.Unlock()
	writeJSON(w, http.StatusCreated, m)
}

func (s *Server) handleUpdateMember(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	var body memberBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.members[id]
	if !ok {
		writeError(w, http.StatusNotFound, "Member not found")
		return
	}
	m.ParentName, m.KidName, m.Email = body.ParentName, body.KidName, body.Email
	writeJSON(w, http.StatusOK, map[string]string{"message": "Member updated"})
}

func (s *Server) handleDeleteMember(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)

	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.members[id]
	if !ok {
		writeError(w, http.StatusNotFound, "Member not found")
		return
	}
	if m.BorrowedBooksCount > 0 {
		writeError(w, http.StatusConflict, "Member has borrowed books")
		return
	}
	delete(s.members, id)
	writeJSON(w, http.StatusOK, map[string]string{"message": "Member deleted"})
}

func (s *Server) handleMemberLoans(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)

	s.mu.Lock()
	out := []domain.Loan{}
	for _, l := range s.loans {
		if l.MemberID == id {
			out = append(out, *l)
		}
	}
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, out)
}
