package models

// Role distinguishes experienced teachers answering questions from the ones asking.
type Role string

const (
	RoleMentor Role = "mentor"
	RoleMentee Role = "mentee"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleMentor || r == RoleMentee
}

// TeacherLevel is the school level a teacher works at.
type TeacherLevel string

const (
	LevelElementary TeacherLevel = "초등학교"
	LevelMiddle     TeacherLevel = "중학교"
	LevelHigh       TeacherLevel = "고등학교"
)

// Valid reports whether l is a known teacher level.
func (l TeacherLevel) Valid() bool {
	switch l {
	case LevelElementary, LevelMiddle, LevelHigh:
		return true
	}
	return false
}

// Category is the closed set of post categories.
type Category string

const (
	CategoryStudentGuidance Category = "학생지도"
	CategoryClassOperation  Category = "수업운영"
	CategoryAssessment      Category = "평가/과제"
	CategoryParentCounsel   Category = "학부모상담"
	CategoryParents         Category = "학부모"
	CategoryColleagues      Category = "동료관계"
	CategoryOther           Category = "기타"
)

// Categories lists every valid category in display order.
var Categories = []Category{
	CategoryStudentGuidance,
	CategoryClassOperation,
	CategoryAssessment,
	CategoryParentCounsel,
	CategoryParents,
	CategoryColleagues,
	CategoryOther,
}

// Valid reports whether c is one of Categories.
func (c Category) Valid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// ReactionType is one of the four fixed sentiments a user can attach to a post.
type ReactionType string

const (
	ReactionCheer   ReactionType = "cheer"
	ReactionEmpathy ReactionType = "empathy"
	ReactionHelpful ReactionType = "helpful"
	ReactionFunny   ReactionType = "funny"
)

// ReactionTypes lists every reaction type.
var ReactionTypes = []ReactionType{ReactionCheer, ReactionEmpathy, ReactionHelpful, ReactionFunny}

// Valid reports whether t is one of ReactionTypes.
func (t ReactionType) Valid() bool {
	for _, known := range ReactionTypes {
		if t == known {
			return true
		}
	}
	return false
}

// TargetType is what a Like points at.
type TargetType string

const (
	TargetPost    TargetType = "post"
	TargetComment TargetType = "comment"
)

// CommentStatus tracks the one-way active -> deleted transition.
type CommentStatus string

const (
	CommentActive  CommentStatus = "active"
	CommentDeleted CommentStatus = "deleted"
)
