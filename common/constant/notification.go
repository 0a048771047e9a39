package constant

const NotificationPurchaseConfirmationTemplate = `
Dear %s,

Thank you for your ticket purchase! Your order has been received and is waiting for payment verification.

Purchase Details:
------------------------------------------
Event: %s
Total Amount: %s
Verification Code: %s
------------------------------------------

Keep your verification code safe: you can check your tickets at any time by entering it on the "My Tickets" page.

You will receive another message once your payment has been verified.

Best regards,
Ticketera Team

Note: This is an automated message, please do not reply.
`

const NotificationTicketsReadyTemplate = `
Dear %s,

Great news! Your payment has been verified and your tickets are ready.

Purchase Details:
------------------------------------------
Event: %s
Total Amount: %s
Verification Code: %s
------------------------------------------

Show the QR code of each ticket at the venue entrance. You can retrieve your tickets with your verification code on the "My Tickets" page.

We look forward to seeing you at the event!

Best regards,
Ticketera Team
`

const NotificationPurchaseCancellationTemplate = `
Dear %s,

We regret to inform you that your purchase has been cancelled.

Purchase Details:
------------------------------------------
Event: %s
Total Amount: %s
Verification Code: %s
------------------------------------------

If you have any questions, please contact the event organizer.

Best regards,
Ticketera Team

Note: This is an automated message, please do not reply.
`

const NotificationEventApprovedTemplate = `
Hello %s,

Your event "%s" has been approved and is now publicly visible on the site.

Best regards,
Ticketera Team
`

const NotificationEventRejectedTemplate = `
Hello %s,

Your event "%s" was not approved.

Reason: %s

You can fix the issues and re-submit the event from your dashboard.

Best regards,
Ticketera Team
`
