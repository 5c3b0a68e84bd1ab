package mail

import (
	htmltemplate "html/template"
	texttemplate "text/template"
)

type templateData struct {
	Name string
	Code string
}

var otpText = texttemplate.Must(texttemplate.New("otp.txt").Parse(`Hello {{.Name}},

Please verify your email with the OTP: {{.Code}}

The code expires in 10 minutes. If you didn't request this email, please ignore it.
`))

var otpHTML = htmltemplate.Must(htmltemplate.New("otp.html").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="UTF-8">
  <title>Verify Your Email</title>
</head>
<body style="font-family: Arial, sans-serif; line-height: 1.6; color: #333; max-width: 600px; margin: 0 auto; padding: 20px;">
  <div style="background-color: #f9f9f9; padding: 30px; border-radius: 10px; border: 1px solid #ddd;">
    <h1 style="text-align: center;">Email Verification</h1>
    <p>Hello {{.Name}},</p>
    <p>Use the code below to verify your email address and complete your registration:</p>
    <div style="text-align: center;"><h2>{{.Code}}</h2></div>
    <div style="background-color: #fff3cd; border: 1px solid #ffeaa7; padding: 15px; border-radius: 5px; margin: 20px 0;">
      <strong>Important:</strong> Please do not share the code with anyone. It expires in 10 minutes.
    </div>
    <p style="margin-top: 30px; font-size: 12px; color: #666; text-align: center;">
      If you didn't request this verification, please ignore this email.<br>
      This is an automated message, please do not reply.
    </p>
  </div>
</body>
</html>
`))
