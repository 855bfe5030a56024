package composer

// Demonstration payloads. These stand in for live telemetry, alert history
// and billing data; nothing here is fetched at runtime.

const telemetryBlock = `- Current Location: ধানমন্ডি ২৭, ঢাকা (23.8103, 90.4125)
- Current Speed: 45 km/h (Safe driving)
- Battery Level: 85% (Excellent)
- Signal Strength: 92% (Strong connection)
- Device Status: Active and Online
- Last GPS Update: Just now (Real-time)`

const alertsBlock = `1. Speed Alert: Vehicle exceeded 80 km/h limit (95 km/h detected) - 1 hour ago at ধানমন্ডি area
2. Geo-fence Alert: Vehicle left safe zone (Gulshan area) - 2 hours ago, now at ধানমন্ডি ২৭
3. Battery Alert: Device battery optimal at 85% - No action needed`

const billingBlock = `- Last Payment: ৳900 via bKash - February 15, 2024 (Successful)
- Payment Method: bKash (Customer's preferred method)
- Next Billing: March 15, 2024
- Payment History: 12 successful payments, 0 failures`

const tenureBlock = `- Account Tenure: 11 months (Since March 2023)
- Service Record: Excellent (No complaints, 5-star rating)`

const capabilitiesBlock = `**AI CAPABILITIES WITH CUSTOMER DATA:**
- Access real-time vehicle location and movement
- Monitor device battery and signal strength in real-time
- Review complete alert history with timestamps
- Process orders using customer payment preferences
- Apply loyalty discounts automatically
- Provide personalized service recommendations
- Reference customer's vehicle details and history`
