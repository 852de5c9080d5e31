package services

import "github.com/retrieveapp/retrieve-api/utils"

var (
	ErrThreadNotFound         = utils.ErrNotFound("", "Thread not found")
	ErrNotThreadMember        = utils.ErrForbidden("You are not a participant of this thread")
	ErrSelfThread             = utils.ErrBadRequest("SELF_THREAD_NOT_ALLOWED", "Owner cannot start a thread with themselves")
	ErrThreadCreateForbidden  = utils.ErrForbidden("Not allowed to create thread")
	ErrParticipantNotFound    = utils.ErrNotFound("PARTICIPANT_NOT_FOUND", "Participant not found")
	ErrItemThreadsForbidden   = utils.ErrForbidden("Not allowed to view threads for this item")
	ErrReadMessageNotInThread = utils.ErrBadRequest("INVALID_MESSAGE", "Message does not belong to this thread")

	ErrMessageBodyRequired = utils.ErrValidation("Message body is required")
	ErrMessageBodyTooLong  = utils.ErrValidation("Message body is too long")
	ErrBeforeNotFound      = utils.ErrBadRequest("", "Before message not found")
	ErrBeforeForeignThread = utils.ErrBadRequest("", "Before message does not belong to this thread")

	ErrItemNotFound      = utils.ErrNotFound("ITEM_NOT_FOUND", "Item not found")
	ErrNotItemOwner      = utils.ErrForbidden("Only the item owner can do this")
	ErrPhotoNotFound     = utils.ErrNotFound("", "Photo not found")
	ErrZipNotFound       = utils.ErrBadRequest("ZIP_NOT_FOUND", "ZIP code not found")
	ErrCategoryNotFound  = utils.ErrNotFound("", "Category not found")
	ErrCategoryExists    = utils.ErrConflict("", "Category already exists")
	ErrCategoryNameEmpty = utils.ErrValidation("Category name cannot be empty")

	ErrCommentNotFound  = utils.ErrNotFound("", "Comment not found")
	ErrNotCommentAuthor = utils.ErrForbidden("Only the author can delete this comment")
	ErrCommentEmpty     = utils.ErrValidation("Comment body is required")

	ErrSeenMarkNotFound  = utils.ErrNotFound("", "Seen mark not found for this item")
	ErrAlreadySeen       = utils.ErrConflict("DUPLICATE", "Already marked as seen")
	ErrSeenMarkForbidden = utils.ErrForbidden("Not allowed to delete this seen mark")

	ErrEmailTaken         = utils.ErrConflict("EMAIL_TAKEN", "Email is already in use")
	ErrInvalidCredentials = utils.NewAppError(401, "INVALID_CREDENTIALS", "Invalid email or password")
	ErrResetTokenInvalid  = utils.ErrBadRequest("INVALID_OR_EXPIRED", "This link is invalid or expired.")
	ErrUserNotFound       = utils.ErrNotFound("", "User not found")
)
