// Package services holds the business logic behind the HTTP controllers.
//
// Services defined in this package:
//   - RoleResolver / RoleStore: resolve and cache the role an identity acts under
//   - AuthService / AuthRedirectService: sessions, OAuth callbacks and role redirects
//   - ProfileService: student profile completeness and onboarding steps
//   - ApplicationService: draft, confirm, select documents, submit
//   - DocumentService: student document uploads
//   - MessagingService: conversations, attachments and realtime feeds
//   - AccountService: account deletion and university official provisioning
//   - ExportService: administrator spreadsheet exports
package services
