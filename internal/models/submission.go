package models

import "time"

// Submission is one submitted file, delivered on the Redis stream and stored in MongoDB
type Submission struct {
	AttemptID  string    `bson:"attemptID" json:"attemptID"`
	Email      string    `bson:"email" json:"email"`
	DriveID    string    `bson:"driveId" json:"driveId"`
	Filename   string    `bson:"filename" json:"filename"`
	SourceCode string    `bson:"sourceCode" json:"sourceCode"`
	CreatedAt  time.Time `bson:"createdAt" json:"createdAt"`
}

// Identity is the label a submission carries in a comparison run
func (s *Submission) Identity() string {
	if s.Filename == "" {
		return s.AttemptID
	}
	return s.AttemptID + "/" + s.Filename
}
