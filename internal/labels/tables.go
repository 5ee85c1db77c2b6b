package labels

var english = map[string]string{
	"app_title":           "The Library of the Israeli Community of Madrid",
	"title":               "Book Title",
	"author":              "Author",
	"description":         "Description",
	"year_of_publication": "Year of Publication",
	"cover_type":          "Cover Type",
	"pages":               "Pages",
	"borrowing_child":     "Borrowing Child's Name",
	"borrowed_by":         "Borrowed By",
	"borrow":              "Borrow Book",
	"return":              "Return Book",
	"delivery_status":     "Delivery Status",
	"delivering_parent":   "Delivering Parent",
	"recommended_age":     "Recommended Age",
	"borrow_date":         "Borrow Date",
	"return_date":         "Return Date",
	"not_returned":        "Not Returned",
	"books":               "Books",
	"members":             "Members",
	"loans":               "Loans",
	"reports":             "Reports",
	"show_all_loans":      "Show History",
	"loan_status":         "Availability",
	"sort_by":             "Sort By",
	"ascending":           "Ascending",
	"descending":          "Descending",
	"select_book":         "Select Book",
	"select_book_state":   "Select Book State",
	"select_borrower":     "Select Borrower",
	"scan_qr":             "Scan QR Code",
	"send_reminders":      "Send Reminders",
	"last_reminder":       "last reminder at",

	"parent_name_label":          "Parent Name",
	"kid_name_label":             "Child Name",
	"email_label":                "Email",
	"borrowed_books_count":       "Borrowed Books",
	"no_members_found":           "No members found",
	"no_books_found":             "No books found",
	"no_loans_found":             "No loans found",
	"error_parent_name_required": "Parent's name is required.",
	"error_kid_name_required":    "Kid's name is required.",
	"error_email_invalid":        "Invalid email address.",
	"error_book_title_required":  "Book title is required.",
	"error_book_author_required": "Author name is required.",
	"error_cover_type_invalid":   "Unknown cover type.",
	"error_condition_invalid":    "Unknown book condition.",
	"error_year_invalid":         "Year of publication must be a positive number.",
	"error_pages_invalid":        "Number of pages must be a positive number.",
	"error_member_has_loans":     "This member still has borrowed books and cannot be deleted.",
	"success_member_added":       "Member added successfully!",
	"success_member_deleted":     "Member deleted.",
	"success_book_saved":         "Book saved.",

	"soft_cover":   "Soft Cover",
	"hard_cover":   "Hard Cover",
	"rigid_pages":  "Rigid Pages",
	"battery_book": "Book with Battery",
	"new":          "New",
	"good":         "Good",
	"worn":         "Worn",
	"available":    "Available",
	"borrowed":     "Borrowed",

	"borrow_success":        "Book borrowed successfully!",
	"return_success":        "Book returned successfully!",
	"borrow_incomplete":     "Please select a borrower, book, and book state.",
	"return_incomplete":     "Please select a book to return.",
	"book_available":        "The book \"%s\" is available.",
	"book_borrowed_by":      "The book \"%s\" was borrowed by %s on %s.",
	"book_borrowed_unknown": "The book \"%s\" is marked as borrowed, but no loan history is available.",
	"book_not_found":        "Book not found for the given QR code.",
	"reminders_sent":        "Sent %d reminders successfully!",
	"reminders_failed":      "Failed to send %d reminders.",
	"reminder_subject":      "Book Return Reminder",

	"inventory_report":        "Inventory Report",
	"loans_report":            "Loans Report",
	"qr_report":               "QR Code Sheet",
	"include_history":         "Include Historical Loans",
	"include_borrowed":        "Include Currently Borrowed Books",
	"error_generating_report": "Failed to generate report. Please try again.",
	"report_saved":            "Report saved to %s",

	"qr_no_code_found": "No QR code was found in the image. Try a closer, sharper photo.",
	"qr_unsupported":   "This image format is not supported. Use a JPEG or PNG photo.",
	"qr_timeout":       "Reading the QR code took too long. Please try again.",
	"qr_unreadable":    "A QR code was found but could not be read. Try better lighting.",
	"qr_oversized":     "The image file is too large.",
	"qr_generic":       "Failed to scan QR code. Please try again.",
	"qr_retry":         "Select another image to retry, or cancel.",

	"session_expired":     "Session expired. Please log in again.",
	"invalid_credentials": "Invalid username or password.",
	"logged_in":           "Logged in.",
	"logged_out":          "Logged out.",
	"backend":             "Backend",
	"database":            "Database",
	"status_up":           "up",
	"status_down":         "down",
	"status_unknown":      "unknown",
	"username_prompt":     "Username",
	"password_prompt":     "Password",
	"unknown_command":     "Unknown command. Type help to list the commands of this tab.",
	"not_found":           "Not found.",
	"error":               "Error",
}

var hebrew = map[string]string{
	"app_title":           "ספריית הקהילה הישראלית במדריד",
	"title":               "שם הספר",
	"author":              "שם המחבר",
	"description":         "תיאור",
	"year_of_publication": "שנת הוצאה",
	"cover_type":          "סוג כריכה",
	"pages":               "עמודים",
	"borrowing_child":     "שם הילד המשאיל",
	"borrowed_by":         "הושאל על ידי",
	"borrow":              "השאל ספר",
	"return":              "החזר ספר",
	"delivery_status":     "מצב מסירה",
	"delivering_parent":   "שם ההורה המוסר",
	"recommended_age":     "גיל מומלץ",
	"borrow_date":         "תאריך השאלה",
	"return_date":         "תאריך החזרה",
	"not_returned":        "לא הוחזר",
	"books":               "ספרים",
	"members":             "חברים",
	"loans":               "השאלות",
	"reports":             "דוחות",
	"show_all_loans":      "הצג היסטוריה",
	"loan_status":         "זמינות",
	"sort_by":             "סדר",
	"ascending":           "עולה",
	"descending":          "יורד",
	"select_book":         "בחר ספר",
	"select_book_state":   "מצב הספר",
	"select_borrower":     "בחר שואל",
	"scan_qr":             "סרוק QR",
	"send_reminders":      "שלח תזכורת",
	"last_reminder":       "תזכורת אחרונה ב",

	"parent_name_label":          "שם ההורה",
	"kid_name_label":             "שם הילד",
	"email_label":                "אימייל",
	"borrowed_books_count":       "ספרים מושאלים",
	"no_members_found":           "לא נמצאו חברים",
	"no_books_found":             "לא נמצאו ספרים",
	"no_loans_found":             "לא נמצאו השאלות",
	"error_parent_name_required": "שם ההורה הוא שדה חובה.",
	"error_kid_name_required":    "שם הילד הוא שדה חובה.",
	"error_email_invalid":        "כתובת אימייל לא תקינה.",
	"error_book_title_required":  "שם הספר הוא שדה חובה.",
	"error_book_author_required": "שם המחבר הוא שדה חובה.",
	"error_member_has_loans":     "לחבר זה יש ספרים מושאלים ולא ניתן למחוק אותו.",
	"success_member_added":       "החבר נוסף בהצלחה!",
	"success_member_deleted":     "החבר נמחק.",
	"success_book_saved":         "הספר נשמר.",

	"soft_cover":   "כריכה רכה",
	"hard_cover":   "כריכה קשה",
	"rigid_pages":  "עמודים קשיחים",
	"battery_book": "ספר עם בטריה",
	"new":          "כמו חדש",
	"good":         "מצויין",
	"worn":         "טוב - בלאי קל",
	"available":    "זמין",
	"borrowed":     "מושאל",

	"borrow_success":   "הספר הושאל בהצלחה!",
	"return_success":   "הספר הוחזר בהצלחה!",
	"book_available":   "הספר \"%s\" זמין.",
	"book_borrowed_by": "הספר \"%s\" הושאל על ידי %s בתאריך %s.",
	"book_not_found":   "לא נמצא ספר עבור קוד ה-QR.",
	"reminders_sent":   "נשלחו %d תזכורות בהצלחה!",
	"reminders_failed": "שליחת %d תזכורות נכשלה.",

	"inventory_report":        "דוח מלאי",
	"loans_report":            "דוח השאלות",
	"qr_report":               "דף קודי QR",
	"include_history":         "כלול השאלות היסטוריות",
	"include_borrowed":        "כלול ספרים מושאלים",
	"error_generating_report": "הפקת הדוח נכשלה, נסה שנית בבקשה.",
	"report_saved":            "הדוח נשמר ב-%s",

	"qr_no_code_found": "לא נמצא קוד QR בתמונה. נסו תמונה קרובה וחדה יותר.",
	"qr_unsupported":   "פורמט התמונה אינו נתמך. השתמשו בתמונת JPEG או PNG.",
	"qr_timeout":       "קריאת הקוד ארכה זמן רב מדי. נסו שוב.",
	"qr_unreadable":    "נמצא קוד QR אך לא ניתן לקרוא אותו. נסו תאורה טובה יותר.",
	"qr_oversized":     "קובץ התמונה גדול מדי.",
	"qr_generic":       "סריקת קוד ה-QR נכשלה. נסו שוב.",
	"qr_retry":         "בחרו תמונה אחרת כדי לנסות שוב, או בטלו.",

	"session_expired":     "פג תוקף החיבור. נא להתחבר מחדש.",
	"invalid_credentials": "שם משתמש או סיסמה שגויים.",
	"logged_in":           "מחובר.",
	"logged_out":          "התנתקת.",
	"backend":             "שרת",
	"database":            "מסד נתונים",
	"status_up":           "פעיל",
	"status_down":         "לא זמין",
	"status_unknown":      "לא ידוע",
	"username_prompt":     "שם משתמש",
	"password_prompt":     "סיסמה",
	"unknown_command":     "פקודה לא מוכרת. הקלידו help לרשימת הפקודות.",
	"not_found":           "לא נמצא.",
	"error":               "שגיאה",
}
