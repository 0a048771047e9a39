package constant

const (
	QueueStreamName = "ticketera_queue_stream"
)

const (
	AllWildcard      = "events.>"
	PurchaseWildcard = "events.purchase.>"
	NotifyWildcard   = "events.notify.>"

	SubjectPurchaseCreated  = "events.purchase.created"
	SubjectVerifyPurchase   = "events.purchase.verify"
	SubjectSendNotification = "events.notify.send"
)
