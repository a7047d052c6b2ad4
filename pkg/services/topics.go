package services

// Domain event topics published on the in-process bus. Payloads are the
// entity values after the transition.
const (
	TopicQueueAdded     = "queue.entry_added"
	TopicQueueNotified  = "queue.entry_notified"
	TopicQueueSeated    = "queue.entry_seated"
	TopicQueueCancelled = "queue.entry_cancelled"
	TopicQueueNoShow    = "queue.entry_no_show"

	TopicReservationCreated   = "reservation.created"
	TopicReservationUpdated   = "reservation.updated"
	TopicReservationConfirmed = "reservation.confirmed"
	TopicReservationArrived   = "reservation.arrived"
	TopicReservationSeated    = "reservation.seated"
	TopicReservationCompleted = "reservation.completed"
	TopicReservationCancelled = "reservation.cancelled"
	TopicReservationNoShow    = "reservation.no_show"

	TopicCommandSessionOpened = "command.session_opened"
	TopicCommandItemAdded     = "command.item_added"
	TopicCommandSessionClosed = "command.session_closed"

	TopicRemoteOrderReceived = "remoteorder.received"
	TopicRemoteOrderStatus   = "remoteorder.status_changed"

	TopicCouponCreated  = "coupon.created"
	TopicCouponRedeemed = "coupon.redeemed"
)
