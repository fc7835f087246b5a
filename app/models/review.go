package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Vote values.
const (
	VoteHelpful    = "helpful"
	VoteNotHelpful = "notHelpful"
)

type Vote struct {
	UserID primitive.ObjectID `bson:"userId" json:"userId"`
	Vote   string             `bson:"vote"   json:"vote"`
}

type Reply struct {
	Text      string             `bson:"text"      json:"text"`
	AdminID   primitive.ObjectID `bson:"adminId"   json:"adminId"`
	RepliedAt time.Time          `bson:"repliedAt" json:"repliedAt"`
}

type Report struct {
	UserID     primitive.ObjectID `bson:"userId"     json:"userId"`
	Reason     string             `bson:"reason"     json:"reason"`
	ReportedAt time.Time          `bson:"reportedAt" json:"reportedAt"`
}

// Review is a rating left on a delivered order line. At most one exists per
// (userId, orderId, productId); a unique index enforces it.
type Review struct {
	ID              primitive.ObjectID `bson:"_id,omitempty"   json:"_id"`
	UserID          primitive.ObjectID `bson:"userId"          json:"userId,omitempty"`
	Username        string             `bson:"username"        json:"username"`
	ProductID       primitive.ObjectID `bson:"productId"       json:"productId"`
	OrderID         primitive.ObjectID `bson:"orderId"         json:"orderId"`
	Rating          int                `bson:"rating"          json:"rating"`
	Comment         string             `bson:"comment"         json:"comment"`
	Images          []string           `bson:"images"          json:"images"`
	Tags            []string           `bson:"tags"            json:"tags"`
	IsAnonymous     bool               `bson:"isAnonymous"     json:"isAnonymous"`
	Votes           []Vote             `bson:"votes"           json:"-"`
	HelpfulVotes    int                `bson:"helpfulVotes"    json:"helpfulVotes"`
	NotHelpfulVotes int                `bson:"notHelpfulVotes" json:"notHelpfulVotes"`
	Reply           *Reply             `bson:"reply,omitempty" json:"reply,omitempty"`
	Hidden          bool               `bson:"hidden"          json:"hidden"`
	Reported        bool               `bson:"reported"        json:"reported"`
	Reports         []Report           `bson:"reports"         json:"reports,omitempty"`
	CreatedAt       time.Time          `bson:"createdAt"       json:"createdAt"`
	UpdatedAt       time.Time          `bson:"updatedAt"       json:"updatedAt"`
}

// ApplyVote toggles userID's vote: the same vote again removes it, the
// opposite vote replaces it. Counters are recounted from Votes.
func (r *Review) ApplyVote(userID primitive.ObjectID, vote string) {
	idx := -1
	for i, v := range r.Votes {
		if v.UserID == userID {
			idx = i
			break
		}
	}
	switch {
	case idx == -1:
		r.Votes = append(r.Votes, Vote{UserID: userID, Vote: vote})
	case r.Votes[idx].Vote == vote:
		r.Votes = append(r.Votes[:idx], r.Votes[idx+1:]...)
	default:
		r.Votes[idx].Vote = vote
	}
	r.Recount()
}

// Recount recomputes the vote counters.
func (r *Review) Recount() {
	r.HelpfulVotes, r.NotHelpfulVotes = 0, 0
	for _, v := range r.Votes {
		switch v.Vote {
		case VoteHelpful:
			r.HelpfulVotes++
		case VoteNotHelpful:
			r.NotHelpfulVotes++
		}
	}
}

// ReportedBy reports whether userID already reported the review.
func (r *Review) ReportedBy(userID primitive.ObjectID) bool {
	for _, rep := range r.Reports {
		if rep.UserID == userID {
			return true
		}
	}
	return false
}

// Masked returns a copy safe for public listing.
func (r Review) Masked() Review {
	r.Reports = nil
	if r.IsAnonymous {
		r.UserID = primitive.NilObjectID
		r.Username = "Anonymous"
	}
	return r
}
